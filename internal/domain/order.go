package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// List of order lifecycle statuses.
const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusPreparing      OrderStatus = "preparing"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusDriverAssigned OrderStatus = "driver_assigned"
	StatusDriverArrived  OrderStatus = "driver_arrived"
	StatusPickedUp       OrderStatus = "picked_up"
	StatusOnTheWay       OrderStatus = "on_the_way"
	StatusArrived        OrderStatus = "arrived"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// transitions is the explicit legality table: state -> legal next states.
// Dispatch may assign a driver while the store is still preparing, so
// driver_assigned is reachable from accepted, preparing and ready_for_pickup.
// The driver_assigned self-transition covers re-assignment after a response
// timeout. cancelled is reachable from every non-terminal state.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusAccepted, StatusCancelled},
	StatusAccepted:       {StatusPreparing, StatusDriverAssigned, StatusCancelled},
	StatusPreparing:      {StatusReadyForPickup, StatusDriverAssigned, StatusCancelled},
	StatusReadyForPickup: {StatusDriverAssigned, StatusCancelled},
	StatusDriverAssigned: {StatusDriverAssigned, StatusDriverArrived, StatusCancelled},
	StatusDriverArrived:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusOnTheWay, StatusCancelled},
	StatusOnTheWay:       {StatusArrived, StatusCancelled},
	StatusArrived:        {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// Valid checks if the OrderStatus is a known lifecycle status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal lifecycle transition.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Actor identifies who performed a lifecycle transition.
type Actor string

// List of transition actors.
const (
	ActorSystem   Actor = "system"
	ActorAdmin    Actor = "admin"
	ActorStore    Actor = "store"
	ActorDriver   Actor = "driver"
	ActorCustomer Actor = "customer"
)

// CancelReason is the structured cause of a terminal cancellation.
type CancelReason string

// List of cancellation reasons.
const (
	ReasonNoDriverAvailable CancelReason = "no_driver_available"
	ReasonCustomerRequest   CancelReason = "customer_request"
	ReasonStoreRejected     CancelReason = "store_rejected"
	ReasonAdminAction       CancelReason = "admin_action"
)

// Order - the subset of an order relevant to dispatch.
type Order struct {
	ID           string
	CityID       string
	StoreID      string
	Status       OrderStatus
	CancelReason *CancelReason
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusChange is one immutable order status history record.
type StatusChange struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
	Actor   Actor
	ActorID string
	Notes   string
	At      time.Time
}

// Cancellation carries the terminal cancellation details of an order.
type Cancellation struct {
	Reason CancelReason
	By     Actor
	Notes  string
	At     time.Time
}
