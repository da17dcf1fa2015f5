package models

import "time"

type Booking struct {
	ID         int64         `json:"id"`
	FieldID    int64         `json:"field_id"`
	FieldName  string        `json:"field_name"`
	CustomerID int64         `json:"customer_id"`
	StartAt    time.Time     `json:"start_at"`
	EndAt      time.Time     `json:"end_at"`
	Status     BookingStatus `json:"status"`
	Price      float64       `json:"price"`
	Note       string        `json:"note"`
	// ManagerID is the manager who last actioned the booking, 0 if none.
	ManagerID    int64     `json:"manager_id,omitempty"`
	StatusReason string    `json:"status_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// Interval returns the booked time range. The interval is fixed at creation
// time; lifecycle transitions only ever change the status.
func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartAt, End: b.EndAt}
}

// ActorRole identifies who requests a lifecycle transition.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleManager  ActorRole = "manager"
	RoleAdmin    ActorRole = "admin"
)

func (r ActorRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ConflictReason explains why a requested interval was refused.
type ConflictReason string

const (
	ReasonBlockedBySchedule ConflictReason = "blocked_by_schedule"
	ReasonOverlapsBooking   ConflictReason = "overlaps_booking"
)

// AvailabilityCheck is the conflict guard verdict for one interval.
// Reason is empty when Available is true.
type AvailabilityCheck struct {
	Available bool           `json:"available"`
	Reason    ConflictReason `json:"reason,omitempty"`
}

// CreateBookingRequest carries a customer's reservation attempt.
type CreateBookingRequest struct {
	FieldID    int64    `json:"field_id"`
	CustomerID int64    `json:"customer_id"`
	Interval   Interval `json:"interval"`
	Price      float64  `json:"price"`
	Note       string   `json:"note"`
}

// TransitionRequest drives one lifecycle step of an existing booking.
type TransitionRequest struct {
	BookingID int64         `json:"booking_id"`
	ActorRole ActorRole     `json:"actor_role"`
	ActorID   int64         `json:"actor_id"`
	Target    BookingStatus `json:"target_status"`
	Reason    string        `json:"reason,omitempty"`
}

// SlotView is one labeled slot of a field's day, annotated with booking state.
type SlotView struct {
	Interval  Interval `json:"interval"`
	Label     string   `json:"label"`
	Available bool     `json:"available"`
	// BookingID points at the active booking occupying the slot, nil if free
	// or if the slot is blocked by a schedule override.
	BookingID *int64  `json:"booking_id,omitempty"`
	Price     float64 `json:"price"`
}
