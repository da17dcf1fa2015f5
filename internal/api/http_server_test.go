package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fieldbook/internal/config"
	"fieldbook/internal/database"
	"fieldbook/internal/models"
	"fieldbook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHTTPServer(t *testing.T) (*HTTPServer, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.UpsertField(context.Background(), &models.Field{
		ID: 5, Name: "North pitch", BasePrice: 50,
	}))

	fieldSvc := service.NewFieldService(db, &logger)
	require.NoError(t, fieldSvc.Refresh(context.Background()))

	resolver := service.NewAvailabilityResolver(db, nil, models.DefaultShiftCatalog(), &logger)
	bookingSvc := service.NewBookingService(db, nil, nil, nil, 90, &logger)

	cfg := config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
	}
	return NewHTTPServer(cfg, fieldSvc, resolver, bookingSvc), db
}

func doRequest(t *testing.T, srv *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func futureSlot(hours int) (time.Time, time.Time) {
	start := time.Now().UTC().Truncate(time.Hour).Add(48 * time.Hour)
	return start, start.Add(time.Duration(hours) * time.Hour)
}

func TestGetFields(t *testing.T) {
	srv, _ := setupHTTPServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/fields", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Fields []models.Field `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "North pitch", resp.Fields[0].Name)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/fields", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetAvailability(t *testing.T) {
	srv, _ := setupHTTPServer(t)
	date := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/fields/5/availability?date="+date, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		FieldID int64             `json:"field_id"`
		Slots   []models.SlotView `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.FieldID)
	assert.Len(t, resp.Slots, 6)

	// Ошибки запроса
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/fields/5/availability", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/fields/abc/availability?date="+date, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/fields/999/availability?date="+date, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingEndpoint(t *testing.T) {
	srv, _ := setupHTTPServer(t)
	start, end := futureSlot(2)

	body := map[string]any{
		"field_id":    5,
		"customer_id": 100,
		"start_at":    start.Format(time.RFC3339),
		"end_at":      end.Format(time.RFC3339),
		"price":       80,
		"note":        "friendly match",
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var booking models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusPending, booking.Status)

	// Пересекающийся интервал получает 409 с причиной
	overlap := map[string]any{
		"field_id":    5,
		"customer_id": 101,
		"start_at":    start.Add(time.Hour).Format(time.RFC3339),
		"end_at":      end.Add(time.Hour).Format(time.RFC3339),
		"price":       80,
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/bookings", overlap)
	require.Equal(t, http.StatusConflict, rec.Code)

	var conflictResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflictResp))
	assert.Equal(t, "overlaps_booking", conflictResp["reason"])

	// Смежный интервал проходит
	adjacent := map[string]any{
		"field_id":    5,
		"customer_id": 102,
		"start_at":    end.Format(time.RFC3339),
		"end_at":      end.Add(2 * time.Hour).Format(time.RFC3339),
		"price":       80,
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/bookings", adjacent)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateBookingValidationErrors(t *testing.T) {
	srv, _ := setupHTTPServer(t)
	start, end := futureSlot(2)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"field_id": 5, "customer_id": 100,
		"start_at": "not-a-time", "end_at": end.Format(time.RFC3339), "price": 80,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"field_id": 5, "customer_id": 100,
		"start_at": start.Format(time.RFC3339), "end_at": end.Format(time.RFC3339), "price": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"field_id": 999, "customer_id": 100,
		"start_at": start.Format(time.RFC3339), "end_at": end.Format(time.RFC3339), "price": 80,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlockedByScheduleEndpoint(t *testing.T) {
	srv, db := setupHTTPServer(t)
	start, _ := futureSlot(1)

	require.NoError(t, db.CreateOverride(context.Background(), &models.ScheduleOverride{
		FieldID:   5,
		StartAt:   start,
		EndAt:     start.Add(time.Hour),
		Available: false,
	}))

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"field_id":    5,
		"customer_id": 100,
		"start_at":    start.Add(30 * time.Minute).Format(time.RFC3339),
		"end_at":      start.Add(90 * time.Minute).Format(time.RFC3339),
		"price":       80,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "blocked_by_schedule", resp["reason"])
}

func TestTransitionEndpoint(t *testing.T) {
	srv, _ := setupHTTPServer(t)
	start, end := futureSlot(2)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"field_id": 5, "customer_id": 100,
		"start_at": start.Format(time.RFC3339), "end_at": end.Format(time.RFC3339), "price": 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))

	path := fmt.Sprintf("/api/v1/bookings/%d/transition", booking.ID)

	rec = doRequest(t, srv, http.MethodPost, path, map[string]any{
		"actor_role": "manager", "actor_id": 7, "target_status": "confirmed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var confirmed models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	// Недопустимый переход даёт 422
	rec = doRequest(t, srv, http.MethodPost, path, map[string]any{
		"actor_role": "manager", "actor_id": 7, "target_status": "rejected", "reason": "late",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Клиент не может подтверждать
	rec = doRequest(t, srv, http.MethodPost, path, map[string]any{
		"actor_role": "customer", "actor_id": 100, "target_status": "completed",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Неизвестная бронь
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/bookings/9999/transition", map[string]any{
		"actor_role": "manager", "actor_id": 7, "target_status": "confirmed",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBookingAndCustomerList(t *testing.T) {
	srv, _ := setupHTTPServer(t)
	start, end := futureSlot(2)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"field_id": 5, "customer_id": 100,
		"start_at": start.Format(time.RFC3339), "end_at": end.Format(time.RFC3339), "price": 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", booking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/bookings?customer_id=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bookings []models.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Bookings, 1)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/bookings", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/bookings/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := setupHTTPServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/fields", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fields", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req)
	assert.Equal(t, "fixed-id", rec2.Header().Get("X-Request-Id"))
}
