package models

import "time"

const (
	FieldActive   = "active"
	FieldInactive = "inactive"
)

type Field struct {
	ID        int64     `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Location  string    `yaml:"location" json:"location"`
	Status    string    `yaml:"status" json:"status"`
	ManagerID int64     `yaml:"manager_id" json:"manager_id"`
	BasePrice float64   `yaml:"base_price" json:"base_price"`
	SortOrder int64     `yaml:"sort_order" json:"sort_order"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

func (f *Field) IsActive() bool {
	return f.Status == FieldActive
}

// ScheduleOverride marks an interval of a field's day as blocked or open,
// independent of bookings. Overrides are independent records; they are not
// required to tile the day.
type ScheduleOverride struct {
	ID        int64     `json:"id"`
	FieldID   int64     `json:"field_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

func (o *ScheduleOverride) Interval() Interval {
	return Interval{Start: o.StartAt, End: o.EndAt}
}
