package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fieldbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingRowValues(t *testing.T) {
	booking := &models.Booking{
		ID:         7,
		FieldID:    5,
		FieldName:  "North pitch",
		CustomerID: 100,
		StartAt:    time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC),
		Status:     models.StatusConfirmed,
		Price:      80,
		Note:       "birthday match",
	}

	row := bookingRowValues(booking)
	require.Len(t, row, 11)
	assert.Equal(t, int64(7), row[0])
	assert.Equal(t, "North pitch", row[2])
	assert.Equal(t, "2026-09-01 14:00:00", row[4])
	assert.Equal(t, "2026-09-01 16:00:00", row[5])
	assert.Equal(t, "confirmed", row[6])
}

func TestScheduleDays(t *testing.T) {
	start := time.Date(2026, 9, 1, 13, 45, 0, 0, time.UTC)
	end := time.Date(2026, 9, 3, 2, 0, 0, 0, time.UTC)

	days := scheduleDays(start, end)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), days[2])
}

func TestActiveCountOn(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	bookings := []*models.Booking{
		{FieldID: 1, Status: models.StatusPending, StartAt: day.Add(10 * time.Hour), EndAt: day.Add(12 * time.Hour)},
		{FieldID: 1, Status: models.StatusConfirmed, StartAt: day.Add(14 * time.Hour), EndAt: day.Add(16 * time.Hour)},
		// отменённая бронь не считается
		{FieldID: 1, Status: models.StatusCancelled, StartAt: day.Add(18 * time.Hour), EndAt: day.Add(20 * time.Hour)},
		// другое поле
		{FieldID: 2, Status: models.StatusPending, StartAt: day.Add(10 * time.Hour), EndAt: day.Add(12 * time.Hour)},
		// другой день
		{FieldID: 1, Status: models.StatusPending, StartAt: day.AddDate(0, 0, 1).Add(10 * time.Hour), EndAt: day.AddDate(0, 0, 1).Add(12 * time.Hour)},
	}

	assert.Equal(t, 2, activeCountOn(bookings, 1, day))
	assert.Equal(t, 1, activeCountOn(bookings, 2, day))
	assert.Equal(t, 1, activeCountOn(bookings, 1, day.AddDate(0, 0, 1)))
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", columnName(1))
	assert.Equal(t, "Z", columnName(26))
	assert.Equal(t, "AA", columnName(27))
	assert.Equal(t, "AB", columnName(28))
}

func TestNewSheetsServiceBadCredentials(t *testing.T) {
	_, err := NewSheetsService("/nonexistent/credentials.json", "sheet-id")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	_, err = NewSheetsService(bad, "sheet-id")
	assert.Error(t, err)
}

func TestGetServiceAccountEmail(t *testing.T) {
	creds := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"client_email":"svc@project.iam.gserviceaccount.com"}`), 0o600))

	s := &SheetsService{}
	email, err := s.GetServiceAccountEmail(creds)
	require.NoError(t, err)
	assert.Equal(t, "svc@project.iam.gserviceaccount.com", email)
}
