// Package queue defines the dispatch job payloads and the enqueue contract
// implemented by the Kafka producer and the Redis delay scheduler.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/domain"
)

// Kind discriminates the job payload variants sharing the dispatch topic.
type Kind string

// List of job kinds.
const (
	KindSearch  Kind = "dispatch.search"
	KindTimeout Kind = "dispatch.timeout"
)

// SearchPayload is one driver-search attempt for an order.
type SearchPayload struct {
	OrderID          string        `json:"order_id"`
	StoreID          string        `json:"store_id"`
	CityID           string        `json:"city_id"`
	StoreLocation    *domain.Point `json:"store_location,omitempty"`
	ExcludeDriverIDs []string      `json:"exclude_driver_ids,omitempty"`
}

// TimeoutPayload guards one assignment awaiting driver response. It carries
// the search context forward so a fired timeout can produce the next search
// attempt without re-reading the chain's history.
type TimeoutPayload struct {
	OrderID          string        `json:"order_id"`
	AssignmentID     string        `json:"assignment_id"`
	DriverID         string        `json:"driver_id"`
	StoreID          string        `json:"store_id"`
	CityID           string        `json:"city_id"`
	StoreLocation    *domain.Point `json:"store_location,omitempty"`
	ExcludeDriverIDs []string      `json:"exclude_driver_ids,omitempty"`
}

// Job is the tagged union carried on the dispatch topic. Exactly one payload
// pointer is set, matching Kind.
type Job struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Search     *SearchPayload  `json:"search,omitempty"`
	Timeout    *TimeoutPayload `json:"timeout,omitempty"`
}

// NewSearchJob builds a search job for the given attempt number.
func NewSearchJob(p SearchPayload, attempt int) Job {
	return Job{
		ID:         uuid.NewString(),
		Kind:       KindSearch,
		Attempt:    attempt,
		EnqueuedAt: time.Now().UTC(),
		Search:     &p,
	}
}

// NewTimeoutJob builds a response-timeout job for the given attempt number.
func NewTimeoutJob(p TimeoutPayload, attempt int) Job {
	return Job{
		ID:         uuid.NewString(),
		Kind:       KindTimeout,
		Attempt:    attempt,
		EnqueuedAt: time.Now().UTC(),
		Timeout:    &p,
	}
}

// OrderID returns the order the job belongs to. Used as the partition key so
// one order's dispatch chain stays causally ordered.
func (j Job) OrderID() string {
	switch j.Kind {
	case KindSearch:
		if j.Search != nil {
			return j.Search.OrderID
		}
	case KindTimeout:
		if j.Timeout != nil {
			return j.Timeout.OrderID
		}
	}
	return ""
}

// Validate checks that Kind and the payload pointers are consistent.
func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job without id")
	}
	if j.Attempt < 1 {
		return fmt.Errorf("job %s: attempt %d < 1", j.ID, j.Attempt)
	}
	switch j.Kind {
	case KindSearch:
		if j.Search == nil || j.Timeout != nil {
			return fmt.Errorf("job %s: kind %s with mismatched payload", j.ID, j.Kind)
		}
		if j.Search.OrderID == "" {
			return fmt.Errorf("job %s: search without order_id", j.ID)
		}
	case KindTimeout:
		if j.Timeout == nil || j.Search != nil {
			return fmt.Errorf("job %s: kind %s with mismatched payload", j.ID, j.Kind)
		}
		if j.Timeout.OrderID == "" || j.Timeout.AssignmentID == "" {
			return fmt.Errorf("job %s: timeout without order_id or assignment_id", j.ID)
		}
	default:
		return fmt.Errorf("job %s: unknown kind %q", j.ID, j.Kind)
	}
	return nil
}
