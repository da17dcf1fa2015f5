package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldbook/internal/database"
	"fieldbook/internal/domain"
	"fieldbook/internal/events"
	"fieldbook/internal/metrics"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo           domain.Repository
	cache          domain.SlotCache
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	maxBookingDays int
	minDuration    time.Duration
	maxDuration    time.Duration
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewBookingService(repo domain.Repository, cache domain.SlotCache, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.MaxBookingDays
	}
	return &BookingService{
		repo:           repo,
		cache:          cache,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		maxBookingDays: maxBookingDays,
		minDuration:    models.MinBookingDurationMinutes * time.Minute,
		maxDuration:    models.MaxBookingDurationHours * time.Hour,
		logger:         logger,
		now:            time.Now,
	}
}

// SetDurationLimits overrides the default booking duration bounds.
func (s *BookingService) SetDurationLimits(min, max time.Duration) {
	if min > 0 {
		s.minDuration = min
	}
	if max > 0 {
		s.maxDuration = max
	}
}

func (s *BookingService) validateRequest(req models.CreateBookingRequest) error {
	if err := req.Interval.Validate(); err != nil {
		return fmt.Errorf("%w: %v", database.ErrValidation, err)
	}
	if req.FieldID <= 0 {
		return fmt.Errorf("%w: field id is required", database.ErrValidation)
	}
	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customer id is required", database.ErrValidation)
	}
	if req.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", database.ErrValidation)
	}

	d := req.Interval.Duration()
	if d < s.minDuration {
		return fmt.Errorf("%w: booking shorter than %s", database.ErrValidation, s.minDuration)
	}
	if d > s.maxDuration {
		return fmt.Errorf("%w: booking longer than %s", database.ErrValidation, s.maxDuration)
	}

	// Горизонт бронирования
	now := s.now()
	if req.Interval.End.Before(now) {
		return database.ErrPastDate
	}
	if req.Interval.Start.After(now.AddDate(0, 0, s.maxBookingDays)) {
		return database.ErrDateTooFar
	}

	return nil
}

// CreateBooking validates the request and reserves the interval atomically.
// The conflict check runs inside the per-field locked transaction, so two
// concurrent requests for overlapping intervals cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		FieldID:    req.FieldID,
		CustomerID: req.CustomerID,
		StartAt:    req.Interval.Start,
		EndAt:      req.Interval.End,
		Price:      req.Price,
		Note:       req.Note,
	}

	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		var conflict *database.ConflictError
		if errors.As(err, &conflict) {
			metrics.IncConflict(string(conflict.Reason))
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking, models.RoleCustomer, req.CustomerID)
	s.enqueueSync(ctx, booking, "upsert")
	s.invalidateDays(ctx, booking)

	return booking, nil
}

// CheckAvailability runs the read-only conflict guard for an interval.
func (s *BookingService) CheckAvailability(ctx context.Context, fieldID int64, iv models.Interval) (models.AvailabilityCheck, error) {
	if err := iv.Validate(); err != nil {
		return models.AvailabilityCheck{}, fmt.Errorf("%w: %v", database.ErrValidation, err)
	}
	return s.repo.CheckInterval(ctx, fieldID, iv)
}

// TransitionBooking drives one lifecycle step. Actor permissions and the
// transition table are checked before the versioned status update.
func (s *BookingService) TransitionBooking(ctx context.Context, req models.TransitionRequest) (*models.Booking, error) {
	if !req.ActorRole.Valid() {
		return nil, fmt.Errorf("%w: unknown actor role %q", database.ErrValidation, req.ActorRole)
	}
	if !req.Target.Valid() {
		return nil, fmt.Errorf("%w: unknown target status %q", database.ErrValidation, req.Target)
	}

	booking, err := s.repo.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTransition(booking, req); err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(req.Target) {
		return nil, &models.InvalidTransitionError{From: booking.Status, To: req.Target}
	}

	managerID := int64(0)
	if req.ActorRole == models.RoleManager || req.ActorRole == models.RoleAdmin {
		managerID = req.ActorID
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, req.Target, managerID, req.Reason); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	metrics.IncTransition(string(req.Target))
	s.publishEvent(transitionEvent(req.Target), updated, req.ActorRole, req.ActorID)
	s.enqueueSync(ctx, updated, "update_status")
	s.invalidateDays(ctx, updated)

	return updated, nil
}

// authorizeTransition enforces who may request which target status.
func (s *BookingService) authorizeTransition(booking *models.Booking, req models.TransitionRequest) error {
	switch req.Target {
	case models.StatusConfirmed, models.StatusRejected, models.StatusCompleted:
		if req.ActorRole == models.RoleCustomer {
			return fmt.Errorf("%w: %s requires a manager", database.ErrValidation, req.Target)
		}
	case models.StatusCancelled:
		if req.ActorRole == models.RoleCustomer && booking.CustomerID != req.ActorID {
			return fmt.Errorf("%w: customer may cancel only own bookings", database.ErrValidation)
		}
	}

	// Причина обязательна при отказе и при отмене подтверждённой брони
	needsReason := req.Target == models.StatusRejected ||
		(req.Target == models.StatusCancelled && booking.Status == models.StatusConfirmed)
	if needsReason && req.Reason == "" {
		return fmt.Errorf("%w: reason is required for %s", database.ErrValidation, req.Target)
	}

	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	return s.repo.GetCustomerBookings(ctx, customerID)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, from, to)
}

func transitionEvent(target models.BookingStatus) string {
	switch target {
	case models.StatusConfirmed:
		return events.EventBookingConfirmed
	case models.StatusRejected:
		return events.EventBookingRejected
	case models.StatusCancelled:
		return events.EventBookingCancelled
	case models.StatusCompleted:
		return events.EventBookingCompleted
	}
	return ""
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actor models.ActorRole, actorID int64) {
	if s.eventBus == nil || eventType == "" {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		FieldID:      booking.FieldID,
		FieldName:    booking.FieldName,
		CustomerID:   booking.CustomerID,
		Status:       string(booking.Status),
		StartAt:      booking.StartAt,
		EndAt:        booking.EndAt,
		Price:        booking.Price,
		Note:         booking.Note,
		StatusReason: booking.StatusReason,
		ChangedBy:    string(actor),
		ChangedByID:  actorID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = string(booking.Status)
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

// invalidateDays drops cached slot views for every day the booking touches.
func (s *BookingService) invalidateDays(ctx context.Context, booking *models.Booking) {
	if s.cache == nil {
		return
	}

	day := booking.StartAt.UTC().Truncate(24 * time.Hour)
	for !day.After(booking.EndAt) {
		if err := s.cache.InvalidateDay(ctx, booking.FieldID, day); err != nil {
			s.logger.Warn().Err(err).Int64("field_id", booking.FieldID).Time("day", day).Msg("slot cache invalidation error")
		}
		day = day.AddDate(0, 0, 1)
	}
}
