package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	s, err := time.Parse("2006-01-02 15:04", start)
	require.NoError(t, err)
	e, err := time.Parse("2006-01-02 15:04", end)
	require.NoError(t, err)
	return Interval{Start: s, End: e}
}

func TestIntervalOverlaps(t *testing.T) {
	base := mustInterval(t, "2025-06-01 14:00", "2025-06-01 16:00")

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", mustInterval(t, "2025-06-01 14:00", "2025-06-01 16:00"), true},
		{"partial overlap right", mustInterval(t, "2025-06-01 15:00", "2025-06-01 17:00"), true},
		{"partial overlap left", mustInterval(t, "2025-06-01 13:00", "2025-06-01 15:00"), true},
		{"contained", mustInterval(t, "2025-06-01 14:30", "2025-06-01 15:30"), true},
		{"containing", mustInterval(t, "2025-06-01 13:00", "2025-06-01 17:00"), true},
		{"touching end", mustInterval(t, "2025-06-01 16:00", "2025-06-01 18:00"), false},
		{"touching start", mustInterval(t, "2025-06-01 12:00", "2025-06-01 14:00"), false},
		{"disjoint after", mustInterval(t, "2025-06-01 17:00", "2025-06-01 18:00"), false},
		{"disjoint before", mustInterval(t, "2025-06-01 10:00", "2025-06-01 12:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			// Предикат симметричен
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestIntervalContains(t *testing.T) {
	iv := mustInterval(t, "2025-06-01 09:00", "2025-06-01 10:00")

	assert.True(t, iv.Contains(iv.Start))
	assert.True(t, iv.Contains(iv.Start.Add(30*time.Minute)))
	// Правая граница не включена
	assert.False(t, iv.Contains(iv.End))
	assert.False(t, iv.Contains(iv.Start.Add(-time.Minute)))
}

func TestIntervalValidate(t *testing.T) {
	valid := mustInterval(t, "2025-06-01 09:00", "2025-06-01 10:00")
	assert.NoError(t, valid.Validate())

	inverted := Interval{Start: valid.End, End: valid.Start}
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidInterval)

	empty := Interval{Start: valid.Start, End: valid.Start}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidInterval)

	zero := Interval{}
	assert.ErrorIs(t, zero.Validate(), ErrInvalidInterval)

	_, err := NewInterval(valid.Start, valid.End)
	assert.NoError(t, err)
	_, err = NewInterval(valid.End, valid.Start)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}
