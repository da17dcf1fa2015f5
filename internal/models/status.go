package models

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// BookingStatus is a closed enum. The only legal values are the constants
// below; anything else is rejected before it reaches storage.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// transitions is the full lifecycle table. Initial state is pending;
// rejected, cancelled and completed are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusCompleted: {},
}

func (s BookingStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Active reports whether the booking occupies its time slot.
// Only pending and confirmed bookings count for conflict checks.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s BookingStatus) Terminal() bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// InvalidTransitionError matches ErrInvalidTransition via errors.Is.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
