package handlers

import "service-dispatch/internal/domain"

func orderToResponse(o domain.Order) orderDTO {
	dto := orderDTO{
		ID:        o.ID,
		StoreID:   o.StoreID,
		CityID:    o.CityID,
		Status:    string(o.Status),
		UpdatedAt: o.UpdatedAt,
	}
	if o.CancelReason != nil {
		reason := string(*o.CancelReason)
		dto.CancelReason = &reason
	}
	return dto
}

func assignmentToResponse(a domain.Assignment) assignmentDTO {
	return assignmentDTO{
		ID:              a.ID,
		OrderID:         a.OrderID,
		DriverID:        a.DriverID,
		Status:          string(a.Status),
		RejectionReason: a.RejectionReason,
		AssignedAt:      a.AssignedAt,
		RespondedAt:     a.RespondedAt,
	}
}
