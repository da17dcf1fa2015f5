package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldbook/internal/models"
)

func (db *DB) CreateField(ctx context.Context, field *models.Field) error {
	if field.Status == "" {
		field.Status = models.FieldActive
	}
	query := `INSERT INTO fields (name, location, status, manager_id, base_price, sort_order, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		field.Name, field.Location, field.Status, field.ManagerID, field.BasePrice, field.SortOrder, now, now)
	if err != nil {
		return fmt.Errorf("failed to create field: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	field.ID = id
	field.CreatedAt = now
	field.UpdatedAt = now
	return nil
}

// UpsertField seeds a field with a fixed ID from config.
func (db *DB) UpsertField(ctx context.Context, field *models.Field) error {
	if field.Status == "" {
		field.Status = models.FieldActive
	}
	query := `INSERT INTO fields (id, name, location, status, manager_id, base_price, sort_order, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  location = excluded.location,
                  status = excluded.status,
                  manager_id = excluded.manager_id,
                  base_price = excluded.base_price,
                  sort_order = excluded.sort_order,
                  updated_at = excluded.updated_at`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query,
		field.ID, field.Name, field.Location, field.Status, field.ManagerID,
		field.BasePrice, field.SortOrder, now, now); err != nil {
		return fmt.Errorf("failed to upsert field: %w", err)
	}
	return nil
}

func (db *DB) GetField(ctx context.Context, id int64) (*models.Field, error) {
	query := `SELECT id, name, location, status, manager_id, base_price, sort_order, created_at, updated_at
              FROM fields WHERE id = ?`

	var f models.Field
	var location sql.NullString
	err := db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.Name, &location, &f.Status, &f.ManagerID, &f.BasePrice, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("field %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	f.Location = location.String
	return &f, nil
}

func (db *DB) GetActiveFields(ctx context.Context) ([]*models.Field, error) {
	query := `SELECT id, name, location, status, manager_id, base_price, sort_order, created_at, updated_at
              FROM fields WHERE status = ? ORDER BY sort_order, id`

	rows, err := db.QueryContext(ctx, query, models.FieldActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active fields: %w", err)
	}
	defer rows.Close()

	var fields []*models.Field
	for rows.Next() {
		f := &models.Field{}
		var location sql.NullString
		err := rows.Scan(&f.ID, &f.Name, &location, &f.Status, &f.ManagerID, &f.BasePrice, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		f.Location = location.String
		fields = append(fields, f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

// SetFieldStatus activates or deactivates a field. Inactive fields keep
// their booking history but refuse new reservations.
func (db *DB) SetFieldStatus(ctx context.Context, id int64, status string) error {
	if status != models.FieldActive && status != models.FieldInactive {
		return fmt.Errorf("invalid field status %q", status)
	}
	query := `UPDATE fields SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set field status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("field %d: %w", id, ErrNotFound)
	}
	return nil
}
