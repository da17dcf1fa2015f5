package database

import (
	"context"
	"fmt"
	"time"

	"fieldbook/internal/models"
)

// CreateOverride stores a manager block-out (available=false) or an explicit
// open window (available=true). A blocking override is refused when it
// overlaps an active booking; overrides created after a booking exists are
// otherwise advisory and checked only at booking time.
func (db *DB) CreateOverride(ctx context.Context, override *models.ScheduleOverride) error {
	iv := override.Interval()
	if err := iv.Validate(); err != nil {
		return err
	}

	mu := db.fieldLock(override.FieldID)
	mu.Lock()
	defer mu.Unlock()

	if !override.Available {
		overlapping, err := db.hasActiveOverlap(ctx, db.DB, override.FieldID, iv)
		if err != nil {
			return err
		}
		if overlapping {
			return fmt.Errorf("field %d %s: %w", override.FieldID, iv, ErrOverrideConflict)
		}
	}

	query := `INSERT INTO schedule_overrides (field_id, start_at, end_at, available, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		override.FieldID, utcString(override.StartAt), utcString(override.EndAt), override.Available, now)
	if err != nil {
		return fmt.Errorf("failed to create override: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	override.ID = id
	override.CreatedAt = now
	return nil
}

// OverridesForRange returns all overrides whose interval intersects
// [from, to), ordered by start.
func (db *DB) OverridesForRange(ctx context.Context, fieldID int64, from, to time.Time) ([]*models.ScheduleOverride, error) {
	query := `SELECT id, field_id, start_at, end_at, available, created_at
              FROM schedule_overrides
              WHERE field_id = ? AND start_at < ? AND end_at > ?
              ORDER BY start_at ASC`

	rows, err := db.QueryContext(ctx, query, fieldID, utcString(to), utcString(from))
	if err != nil {
		return nil, fmt.Errorf("failed to get overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.ScheduleOverride
	for rows.Next() {
		o := &models.ScheduleOverride{}
		var startStr, endStr string
		if err := rows.Scan(&o.ID, &o.FieldID, &startStr, &endStr, &o.Available, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		if o.StartAt, err = parseStoredTime(startStr); err != nil {
			return nil, err
		}
		if o.EndAt, err = parseStoredTime(endStr); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return overrides, nil
}

// IsBlocked reports whether any blocking override overlaps the interval.
// Reads go straight to the store; newly created overrides are visible
// immediately.
func (db *DB) IsBlocked(ctx context.Context, fieldID int64, iv models.Interval) (bool, error) {
	return db.isBlocked(ctx, db.DB, fieldID, iv)
}

func (db *DB) isBlocked(ctx context.Context, q rowQuerier, fieldID int64, iv models.Interval) (bool, error) {
	query := `SELECT COUNT(*) FROM schedule_overrides
              WHERE field_id = ? AND available = 0 AND start_at < ? AND end_at > ?`

	var count int
	err := q.QueryRowContext(ctx, query, fieldID, utcString(iv.End), utcString(iv.Start)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check overrides: %w", err)
	}
	return count > 0, nil
}

func (db *DB) DeleteOverride(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM schedule_overrides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("override %d: %w", id, ErrNotFound)
	}
	return nil
}
