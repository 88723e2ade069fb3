package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStatus is returned for a status value outside the recognized set.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrInvalidTransition is returned when a recognized status is not reachable
	// from the shipment's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status is the lifecycle state of a shipment. Transitions are forward-only:
// a shipment moves to the immediate next status, or to Cancelled from any
// non-terminal status. Delivered and Cancelled are terminal.
type Status string

const (
	StatusPending        Status = "Pending"
	StatusInTransit      Status = "In Transit"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

// forwardSteps maps each status to its immediate successor.
var forwardSteps = map[Status]Status{
	StatusPending:        StatusInTransit,
	StatusInTransit:      StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the immediate forward step, if any.
func (s Status) Next() (Status, bool) {
	next, ok := forwardSteps[s]
	return next, ok
}

// NextStatuses lists the statuses reachable from s.
func (s Status) NextStatuses() []Status {
	if s.IsTerminal() {
		return nil
	}
	next, _ := s.Next()
	return []Status{next, StatusCancelled}
}

// CanTransition reports whether s may move to the target status.
func (s Status) CanTransition(to Status) error {
	if s.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s)
	}
	if to == StatusCancelled {
		return nil
	}
	if next, ok := s.Next(); ok && to == next {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}
