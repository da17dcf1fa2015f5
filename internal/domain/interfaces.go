package domain

import (
	"context"
	"time"

	"fieldbook/internal/models"
)

// Repository is the persistent store behind the booking core.
type Repository interface {
	// fields
	CreateField(ctx context.Context, field *models.Field) error
	UpsertField(ctx context.Context, field *models.Field) error
	GetField(ctx context.Context, id int64) (*models.Field, error)
	GetActiveFields(ctx context.Context) ([]*models.Field, error)
	SetFieldStatus(ctx context.Context, id int64, status string) error

	// schedule overrides
	CreateOverride(ctx context.Context, override *models.ScheduleOverride) error
	OverridesForRange(ctx context.Context, fieldID int64, from, to time.Time) ([]*models.ScheduleOverride, error)
	IsBlocked(ctx context.Context, fieldID int64, iv models.Interval) (bool, error)
	DeleteOverride(ctx context.Context, id int64) error

	// bookings
	CheckInterval(ctx context.Context, fieldID int64, iv models.Interval) (models.AvailabilityCheck, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus, managerID int64, reason string) error
	ActiveBookingsInRange(ctx context.Context, fieldID int64, from, to time.Time) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error)
}

// SlotCache caches resolved day views on the read path. A nil/miss result
// means the caller recomputes; the write path never consults the cache.
type SlotCache interface {
	GetDay(ctx context.Context, fieldID int64, day time.Time) ([]models.SlotView, error)
	SetDay(ctx context.Context, fieldID int64, day time.Time, slots []models.SlotView) error
	InvalidateDay(ctx context.Context, fieldID int64, day time.Time) error
}

// EventPublisher fans booking events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker queues external synchronization tasks (the Sheets mirror).
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error
}

// AvailabilityResolver produces the annotated slot list for a field's day.
type AvailabilityResolver interface {
	ResolveDay(ctx context.Context, fieldID int64, day time.Time) ([]models.SlotView, error)
}

// BookingService is the write-path surface of the core.
type BookingService interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	TransitionBooking(ctx context.Context, req models.TransitionRequest) (*models.Booking, error)
	CheckAvailability(ctx context.Context, fieldID int64, iv models.Interval) (models.AvailabilityCheck, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error)
}
