package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldbook/internal/models"
)

// rowQuerier is satisfied by both *sql.DB and *sql.Tx so the conflict guard
// can run standalone (read path) and inside the booking transaction
// (write path) with identical SQL.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// bookingColumns pairs with scanBooking and expects the bookings table
// aliased as b joined to fields as f (for the denormalized field name).
const bookingColumns = `b.id, b.field_id, b.customer_id, b.start_at, b.end_at, b.status, b.price,
                 b.note, b.manager_id, b.status_reason, b.created_at, b.updated_at, b.version,
                 COALESCE(f.name, '')`

const bookingFrom = ` FROM bookings b LEFT JOIN fields f ON f.id = b.field_id`

// CheckInterval is the read-only conflict guard: schedule overrides first,
// then active bookings. Both checks use the same half-open overlap
// predicate (start_at < end AND end_at > start).
func (db *DB) CheckInterval(ctx context.Context, fieldID int64, iv models.Interval) (models.AvailabilityCheck, error) {
	return db.checkInterval(ctx, db.DB, fieldID, iv)
}

func (db *DB) checkInterval(ctx context.Context, q rowQuerier, fieldID int64, iv models.Interval) (models.AvailabilityCheck, error) {
	blocked, err := db.isBlocked(ctx, q, fieldID, iv)
	if err != nil {
		return models.AvailabilityCheck{}, err
	}
	if blocked {
		return models.AvailabilityCheck{Available: false, Reason: models.ReasonBlockedBySchedule}, nil
	}

	overlapping, err := db.hasActiveOverlap(ctx, q, fieldID, iv)
	if err != nil {
		return models.AvailabilityCheck{}, err
	}
	if overlapping {
		return models.AvailabilityCheck{Available: false, Reason: models.ReasonOverlapsBooking}, nil
	}

	return models.AvailabilityCheck{Available: true}, nil
}

func (db *DB) hasActiveOverlap(ctx context.Context, q rowQuerier, fieldID int64, iv models.Interval) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE field_id = ? AND start_at < ? AND end_at > ? AND status IN (?, ?)`

	var count int
	err := q.QueryRowContext(ctx, query, fieldID,
		utcString(iv.End), utcString(iv.Start),
		models.StatusPending, models.StatusConfirmed).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	return count > 0, nil
}

// CreateBookingWithLock re-validates the requested interval and inserts the
// booking as one atomic unit: a per-field mutex serializes concurrent
// requests for the same field in this process, and the transaction keeps
// check and insert on one consistent snapshot. On context cancellation the
// transaction rolls back; no partial booking is left behind.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	iv := booking.Interval()
	if err := iv.Validate(); err != nil {
		return err
	}

	mu := db.fieldLock(booking.FieldID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status, fieldName string
	err = tx.QueryRowContext(ctx, `SELECT status, name FROM fields WHERE id = ?`, booking.FieldID).Scan(&status, &fieldName)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("field %d: %w", booking.FieldID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get field in tx: %w", err)
	}
	if status != models.FieldActive {
		return fmt.Errorf("field %d: %w", booking.FieldID, ErrFieldInactive)
	}

	check, err := db.checkInterval(ctx, tx, booking.FieldID, iv)
	if err != nil {
		return err
	}
	if !check.Available {
		return &ConflictError{FieldID: booking.FieldID, Reason: check.Reason}
	}

	query := `INSERT INTO bookings (
				field_id, customer_id, start_at, end_at, status, price,
				note, manager_id, status_reason, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.FieldID,
		booking.CustomerID,
		utcString(booking.StartAt),
		utcString(booking.EndAt),
		models.StatusPending,
		booking.Price,
		booking.Note,
		booking.ManagerID,
		booking.StatusReason,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.FieldName = fieldName
	booking.Status = models.StatusPending
	booking.StartAt = booking.StartAt.UTC().Truncate(time.Second)
	booking.EndAt = booking.EndAt.UTC().Truncate(time.Second)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + ` WHERE b.id = ?`

	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatusWithVersion moves a booking to a new status with
// optimistic locking. The caller is responsible for transition legality;
// this only guarantees nobody else changed the record in between.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus, managerID int64, reason string) error {
	query := `UPDATE bookings
              SET status = ?, manager_id = ?, status_reason = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, managerID, reason, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ActiveBookingsInRange returns pending and confirmed bookings of a field
// whose interval intersects [from, to), ordered by start.
func (db *DB) ActiveBookingsInRange(ctx context.Context, fieldID int64, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + `
              WHERE b.field_id = ? AND b.start_at < ? AND b.end_at > ? AND b.status IN (?, ?)
              ORDER BY b.start_at ASC, b.id ASC`

	rows, err := db.QueryContext(ctx, query, fieldID,
		utcString(to), utcString(from), models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// GetBookingsByDateRange returns all bookings (any status) intersecting
// [from, to), across all fields, ordered by start.
func (db *DB) GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + `
              WHERE b.start_at < ? AND b.end_at > ?
              ORDER BY b.start_at ASC, b.id ASC`

	rows, err := db.QueryContext(ctx, query, utcString(to), utcString(from))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// GetCustomerBookings returns a customer's bookings ordered by creation,
// newest first.
func (db *DB) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + `
              WHERE b.customer_id = ? ORDER BY b.created_at DESC, b.id DESC`

	rows, err := db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var startStr, endStr string
	var note, reason sql.NullString
	err := row.Scan(
		&b.ID, &b.FieldID, &b.CustomerID, &startStr, &endStr, &b.Status, &b.Price,
		&note, &b.ManagerID, &reason, &b.CreatedAt, &b.UpdatedAt, &b.Version,
		&b.FieldName,
	)
	if err != nil {
		return nil, err
	}
	b.Note = note.String
	b.StatusReason = reason.String
	if b.StartAt, err = parseStoredTime(startStr); err != nil {
		return nil, err
	}
	if b.EndAt, err = parseStoredTime(endStr); err != nil {
		return nil, err
	}
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
