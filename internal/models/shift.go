package models

import (
	"fmt"
	"sort"
	"time"
)

// DefaultShiftLabel is used for hours outside every configured shift.
const DefaultShiftLabel = "other"

// Shift is one labeled chunk of the day, [StartHour, EndHour) in the
// field's local day.
type Shift struct {
	StartHour       int     `yaml:"start_hour" json:"start_hour"`
	EndHour         int     `yaml:"end_hour" json:"end_hour"`
	Label           string  `yaml:"label" json:"label"`
	PriceMultiplier float64 `yaml:"price_multiplier" json:"price_multiplier"`
}

// ShiftCatalog is the static partition of a day into shifts, ordered by
// StartHour. Fields with their own schedule overrides bypass the catalog
// during slot generation.
type ShiftCatalog []Shift

// DefaultShiftCatalog covers 06:00-22:00 with six fixed shifts.
func DefaultShiftCatalog() ShiftCatalog {
	return ShiftCatalog{
		{StartHour: 6, EndHour: 9, Label: "early morning", PriceMultiplier: 0.8},
		{StartHour: 9, EndHour: 12, Label: "morning", PriceMultiplier: 1.0},
		{StartHour: 12, EndHour: 15, Label: "noon", PriceMultiplier: 1.0},
		{StartHour: 15, EndHour: 18, Label: "afternoon", PriceMultiplier: 1.1},
		{StartHour: 18, EndHour: 20, Label: "evening", PriceMultiplier: 1.3},
		{StartHour: 20, EndHour: 22, Label: "night", PriceMultiplier: 1.2},
	}
}

func (c ShiftCatalog) Validate() error {
	if !sort.SliceIsSorted(c, func(i, j int) bool { return c[i].StartHour < c[j].StartHour }) {
		return fmt.Errorf("shift catalog must be ordered by start_hour")
	}
	for i, s := range c {
		if s.StartHour < 0 || s.EndHour > 24 || s.EndHour <= s.StartHour {
			return fmt.Errorf("shift %q has invalid hours [%d, %d)", s.Label, s.StartHour, s.EndHour)
		}
		if s.Label == "" {
			return fmt.Errorf("shift %d has empty label", i)
		}
		if s.PriceMultiplier <= 0 {
			return fmt.Errorf("shift %q has non-positive price multiplier", s.Label)
		}
		if i > 0 && s.StartHour < c[i-1].EndHour {
			return fmt.Errorf("shift %q overlaps previous shift %q", s.Label, c[i-1].Label)
		}
	}
	return nil
}

// LabelFor returns the label of the shift the timestamp's hour falls into,
// or DefaultShiftLabel when no shift covers that hour.
func (c ShiftCatalog) LabelFor(t time.Time) string {
	if s := c.shiftFor(t); s != nil {
		return s.Label
	}
	return DefaultShiftLabel
}

// MultiplierFor returns the price multiplier for the timestamp's hour,
// 1.0 outside every shift.
func (c ShiftCatalog) MultiplierFor(t time.Time) float64 {
	if s := c.shiftFor(t); s != nil {
		return s.PriceMultiplier
	}
	return 1.0
}

func (c ShiftCatalog) shiftFor(t time.Time) *Shift {
	hour := t.Hour()
	for i := range c {
		if hour >= c[i].StartHour && hour < c[i].EndHour {
			return &c[i]
		}
	}
	return nil
}

// SlotsFor expands the catalog into one interval per shift for the calendar
// day containing the given time, in the day's location.
func (c ShiftCatalog) SlotsFor(day time.Time) []Interval {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	slots := make([]Interval, 0, len(c))
	for _, s := range c {
		slots = append(slots, Interval{
			Start: midnight.Add(time.Duration(s.StartHour) * time.Hour),
			End:   midnight.Add(time.Duration(s.EndHour) * time.Hour),
		})
	}
	return slots
}
