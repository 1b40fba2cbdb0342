package handlers

import "time"

type transitionRequest struct {
	Status  string `json:"status"`
	Actor   string `json:"actor"`
	ActorID string `json:"actor_id,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type cancelRequest struct {
	Reason  string `json:"reason"`
	Actor   string `json:"actor"`
	ActorID string `json:"actor_id,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

type orderDTO struct {
	ID           string    `json:"id"`
	StoreID      string    `json:"store_id"`
	CityID       string    `json:"city_id"`
	Status       string    `json:"status"`
	CancelReason *string   `json:"cancel_reason,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type assignmentDTO struct {
	ID              string     `json:"id"`
	OrderID         string     `json:"order_id"`
	DriverID        string     `json:"driver_id"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	AssignedAt      time.Time  `json:"assigned_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
}
