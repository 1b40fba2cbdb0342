package domain

import "time"

// AssignmentStatus is the per-attempt outcome of offering an order to a driver.
type AssignmentStatus string

// List of assignment statuses. An assignment starts as assigned and moves
// exactly once into one of the terminal per-attempt states.
const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentRejected   AssignmentStatus = "rejected"
	AssignmentReassigned AssignmentStatus = "reassigned"
)

// List of rejection reasons.
const (
	RejectionTimeout  = "timeout"
	RejectionDeclined = "declined"
)

// Valid checks if the AssignmentStatus is valid.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentAccepted, AssignmentRejected, AssignmentReassigned:
		return true
	default:
		return false
	}
}

// Assignment is one ledger row: a single driver offered a single order,
// with its outcome. Rows are append-only except for the one move out of
// the assigned state.
type Assignment struct {
	ID              string
	OrderID         string
	DriverID        string
	Status          AssignmentStatus
	RejectionReason *string
	AssignedAt      time.Time
	RespondedAt     *time.Time
}
