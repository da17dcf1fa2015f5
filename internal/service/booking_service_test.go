package service

import (
	"context"
	"testing"
	"time"

	"fieldbook/internal/database"
	"fieldbook/internal/events"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateField(ctx context.Context, f *models.Field) error {
	return m.Called(ctx, f).Error(0)
}
func (m *mockRepo) UpsertField(ctx context.Context, f *models.Field) error {
	return m.Called(ctx, f).Error(0)
}
func (m *mockRepo) GetField(ctx context.Context, id int64) (*models.Field, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Field), args.Error(1)
}
func (m *mockRepo) GetActiveFields(ctx context.Context) ([]*models.Field, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Field), args.Error(1)
}
func (m *mockRepo) SetFieldStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockRepo) CreateOverride(ctx context.Context, o *models.ScheduleOverride) error {
	return m.Called(ctx, o).Error(0)
}
func (m *mockRepo) OverridesForRange(ctx context.Context, fieldID int64, from, to time.Time) ([]*models.ScheduleOverride, error) {
	args := m.Called(ctx, fieldID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScheduleOverride), args.Error(1)
}
func (m *mockRepo) IsBlocked(ctx context.Context, fieldID int64, iv models.Interval) (bool, error) {
	args := m.Called(ctx, fieldID, iv)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) DeleteOverride(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) CheckInterval(ctx context.Context, fieldID int64, iv models.Interval) (models.AvailabilityCheck, error) {
	args := m.Called(ctx, fieldID, iv)
	return args.Get(0).(models.AvailabilityCheck), args.Error(1)
}
func (m *mockRepo) CreateBookingWithLock(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus, managerID int64, reason string) error {
	return m.Called(ctx, id, fromVersion, status, managerID, reason).Error(0)
}
func (m *mockRepo) ActiveBookingsInRange(ctx context.Context, fieldID int64, from, to time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, fieldID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error {
	return m.Called(ctx, taskType, bookingID, booking, status).Error(0)
}

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, worker *mockSyncWorker, bus *events.EventBus) *BookingService {
	logger := zerolog.Nop()
	svc := NewBookingService(repo, nil, nil, nil, 90, &logger)
	if bus != nil {
		svc.eventBus = bus
	}
	if worker != nil {
		svc.sheetsWorker = worker
	}
	svc.now = func() time.Time { return testNow }
	return svc
}

func validRequest() models.CreateBookingRequest {
	return models.CreateBookingRequest{
		FieldID:    5,
		CustomerID: 100,
		Interval: models.Interval{
			Start: testNow.Add(24 * time.Hour),
			End:   testNow.Add(26 * time.Hour),
		},
		Price: 80,
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	repo := new(mockRepo)
	worker := new(mockSyncWorker)
	bus := events.NewEventBus()

	var published *events.Event
	bus.Subscribe(events.EventBookingCreated, func(e *events.Event) error {
		published = e
		return nil
	})

	repo.On("CreateBookingWithLock", mock.Anything, mock.AnythingOfType("*models.Booking")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Booking).ID = 1
			args.Get(1).(*models.Booking).Status = models.StatusPending
		}).Return(nil)
	worker.On("EnqueueTask", mock.Anything, "upsert", int64(1), mock.Anything, "").Return(nil)

	svc := newTestService(repo, worker, bus)
	booking, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, booking.Status)

	require.NotNil(t, published, "booking_created event must be published")
	repo.AssertExpectations(t)
	worker.AssertExpectations(t)
}

func TestCreateBookingValidation(t *testing.T) {
	svc := newTestService(new(mockRepo), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*models.CreateBookingRequest)
		wantErr error
	}{
		{
			name:    "zero price",
			mutate:  func(r *models.CreateBookingRequest) { r.Price = 0 },
			wantErr: database.ErrValidation,
		},
		{
			name:    "missing customer",
			mutate:  func(r *models.CreateBookingRequest) { r.CustomerID = 0 },
			wantErr: database.ErrValidation,
		},
		{
			name: "inverted interval",
			mutate: func(r *models.CreateBookingRequest) {
				r.Interval.Start, r.Interval.End = r.Interval.End, r.Interval.Start
			},
			wantErr: database.ErrValidation,
		},
		{
			name: "too short",
			mutate: func(r *models.CreateBookingRequest) {
				r.Interval.End = r.Interval.Start.Add(10 * time.Minute)
			},
			wantErr: database.ErrValidation,
		},
		{
			name: "too long",
			mutate: func(r *models.CreateBookingRequest) {
				r.Interval.End = r.Interval.Start.Add(12 * time.Hour)
			},
			wantErr: database.ErrValidation,
		},
		{
			name: "in the past",
			mutate: func(r *models.CreateBookingRequest) {
				r.Interval.Start = testNow.Add(-3 * time.Hour)
				r.Interval.End = testNow.Add(-time.Hour)
			},
			wantErr: database.ErrPastDate,
		},
		{
			name: "beyond horizon",
			mutate: func(r *models.CreateBookingRequest) {
				r.Interval.Start = testNow.AddDate(0, 0, 120)
				r.Interval.End = r.Interval.Start.Add(2 * time.Hour)
			},
			wantErr: database.ErrDateTooFar,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.CreateBooking(ctx, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateBookingConflictPropagates(t *testing.T) {
	repo := new(mockRepo)
	conflict := &database.ConflictError{FieldID: 5, Reason: models.ReasonOverlapsBooking}
	repo.On("CreateBookingWithLock", mock.Anything, mock.Anything).Return(conflict)

	svc := newTestService(repo, nil, nil)
	_, err := svc.CreateBooking(context.Background(), validRequest())
	assert.ErrorIs(t, err, database.ErrSlotConflict)

	var got *database.ConflictError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, models.ReasonOverlapsBooking, got.Reason)
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:         1,
		FieldID:    5,
		CustomerID: 100,
		StartAt:    testNow.Add(24 * time.Hour),
		EndAt:      testNow.Add(26 * time.Hour),
		Status:     models.StatusPending,
		Price:      80,
		Version:    1,
	}
}

func TestTransitionConfirm(t *testing.T) {
	repo := new(mockRepo)
	worker := new(mockSyncWorker)
	bus := events.NewEventBus()

	var published *events.Event
	bus.Subscribe(events.EventBookingConfirmed, func(e *events.Event) error {
		published = e
		return nil
	})

	booking := pendingBooking()
	confirmed := *booking
	confirmed.Status = models.StatusConfirmed
	confirmed.Version = 2

	repo.On("GetBooking", mock.Anything, int64(1)).Return(booking, nil).Once()
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(1), int64(1), models.StatusConfirmed, int64(7), "").Return(nil)
	repo.On("GetBooking", mock.Anything, int64(1)).Return(&confirmed, nil).Once()
	worker.On("EnqueueTask", mock.Anything, "update_status", int64(1), mock.Anything, "confirmed").Return(nil)

	svc := newTestService(repo, worker, bus)
	got, err := svc.TransitionBooking(context.Background(), models.TransitionRequest{
		BookingID: 1,
		ActorRole: models.RoleManager,
		ActorID:   7,
		Target:    models.StatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.NotNil(t, published)
	repo.AssertExpectations(t)
	worker.AssertExpectations(t)
}

func TestTransitionAuthorization(t *testing.T) {
	tests := []struct {
		name string
		req  models.TransitionRequest
	}{
		{
			name: "customer cannot confirm",
			req:  models.TransitionRequest{BookingID: 1, ActorRole: models.RoleCustomer, ActorID: 100, Target: models.StatusConfirmed},
		},
		{
			name: "customer cannot reject",
			req:  models.TransitionRequest{BookingID: 1, ActorRole: models.RoleCustomer, ActorID: 100, Target: models.StatusRejected, Reason: "no"},
		},
		{
			name: "customer cannot cancel foreign booking",
			req:  models.TransitionRequest{BookingID: 1, ActorRole: models.RoleCustomer, ActorID: 999, Target: models.StatusCancelled},
		},
		{
			name: "reject requires a reason",
			req:  models.TransitionRequest{BookingID: 1, ActorRole: models.RoleManager, ActorID: 7, Target: models.StatusRejected},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("GetBooking", mock.Anything, int64(1)).Return(pendingBooking(), nil)

			svc := newTestService(repo, nil, nil)
			_, err := svc.TransitionBooking(context.Background(), tc.req)
			assert.ErrorIs(t, err, database.ErrValidation)
		})
	}
}

func TestTransitionCancelConfirmedNeedsReason(t *testing.T) {
	booking := pendingBooking()
	booking.Status = models.StatusConfirmed

	repo := new(mockRepo)
	repo.On("GetBooking", mock.Anything, int64(1)).Return(booking, nil)

	svc := newTestService(repo, nil, nil)
	_, err := svc.TransitionBooking(context.Background(), models.TransitionRequest{
		BookingID: 1,
		ActorRole: models.RoleCustomer,
		ActorID:   100,
		Target:    models.StatusCancelled,
	})
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestTransitionIllegal(t *testing.T) {
	tests := []struct {
		name   string
		from   models.BookingStatus
		target models.BookingStatus
	}{
		{name: "pending to completed", from: models.StatusPending, target: models.StatusCompleted},
		{name: "rejected is terminal", from: models.StatusRejected, target: models.StatusConfirmed},
		{name: "repeated rejection", from: models.StatusRejected, target: models.StatusRejected},
		// Отмена завершённой брони запрещена
		{name: "cancel completed", from: models.StatusCompleted, target: models.StatusCancelled},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			booking := pendingBooking()
			booking.Status = tc.from

			repo := new(mockRepo)
			repo.On("GetBooking", mock.Anything, int64(1)).Return(booking, nil)

			svc := newTestService(repo, nil, nil)
			_, err := svc.TransitionBooking(context.Background(), models.TransitionRequest{
				BookingID: 1,
				ActorRole: models.RoleManager,
				ActorID:   7,
				Target:    tc.target,
				Reason:    "why not",
			})
			require.ErrorIs(t, err, models.ErrInvalidTransition)

			var invalid *models.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.from, invalid.From)
			assert.Equal(t, tc.target, invalid.To)
		})
	}
}

func TestCheckAvailabilityDelegates(t *testing.T) {
	repo := new(mockRepo)
	iv := models.Interval{Start: testNow, End: testNow.Add(time.Hour)}
	repo.On("CheckInterval", mock.Anything, int64(5), iv).
		Return(models.AvailabilityCheck{Available: false, Reason: models.ReasonBlockedBySchedule}, nil)

	svc := newTestService(repo, nil, nil)
	check, err := svc.CheckAvailability(context.Background(), 5, iv)
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, models.ReasonBlockedBySchedule, check.Reason)
}
