package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldbook/internal/config"
	"fieldbook/internal/database"
	"fieldbook/internal/domain"
	"fieldbook/internal/metrics"
	"fieldbook/internal/models"

	"github.com/google/uuid"
)

// FieldCatalog is the read surface the HTTP API needs for fields.
type FieldCatalog interface {
	GetActiveFields(ctx context.Context) ([]*models.Field, error)
	GetFieldByID(ctx context.Context, id int64) (*models.Field, error)
}

// HTTPServer exposes the booking API alongside the gRPC health endpoint.
type HTTPServer struct {
	cfg      config.APIConfig
	fields   FieldCatalog
	resolver domain.AvailabilityResolver
	bookings domain.BookingService
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, fields FieldCatalog, resolver domain.AvailabilityResolver, bookings domain.BookingService) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, fields: fields, resolver: resolver, bookings: bookings}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/fields", srv.handleFields)
	mux.HandleFunc("/api/v1/fields/", srv.handleFieldSubtree)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingSubtree)

	handler := requestIDMiddleware(loggingMiddleware(srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	log.Printf("HTTP API listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleFields(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("fields")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	fields, err := s.fields.GetActiveFields(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// handleFieldSubtree serves GET /api/v1/fields/{id}/availability?date=YYYY-MM-DD.
func (s *HTTPServer) handleFieldSubtree(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/fields/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "availability" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	fieldID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || fieldID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid field id")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, err := s.resolver.ResolveDay(r.Context(), fieldID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"field_id": fieldID,
		"date":     dateStr,
		"slots":    slots,
	})
}

// handleBookings serves POST /api/v1/bookings and GET /api/v1/bookings?customer_id=N.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listCustomerBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createBookingBody struct {
	FieldID    int64   `json:"field_id"`
	CustomerID int64   `json:"customer_id"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Price      float64 `json:"price"`
	Note       string  `json:"note"`
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var body createBookingBody
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := time.Parse(time.RFC3339, body.StartAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_at; expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, body.EndAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_at; expected RFC3339")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), models.CreateBookingRequest{
		FieldID:    body.FieldID,
		CustomerID: body.CustomerID,
		Interval:   models.Interval{Start: start, End: end},
		Price:      body.Price,
		Note:       body.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listCustomerBookings(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	bookings, err := s.bookings.GetCustomerBookings(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleBookingSubtree serves GET /api/v1/bookings/{id} and
// POST /api/v1/bookings/{id}/transition.
func (s *HTTPServer) handleBookingSubtree(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking")
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(rest, "/")

	bookingID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || bookingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getBooking(w, r, bookingID)
	case len(parts) == 2 && parts[1] == "transition" && r.Method == http.MethodPost:
		s.transitionBooking(w, r, bookingID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request, bookingID int64) {
	booking, err := s.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type transitionBody struct {
	ActorRole string `json:"actor_role"`
	ActorID   int64  `json:"actor_id"`
	Target    string `json:"target_status"`
	Reason    string `json:"reason"`
}

func (s *HTTPServer) transitionBooking(w http.ResponseWriter, r *http.Request, bookingID int64) {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var body transitionBody
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.TransitionBooking(r.Context(), models.TransitionRequest{
		BookingID: bookingID,
		ActorRole: models.ActorRole(body.ActorRole),
		ActorID:   body.ActorID,
		Target:    models.BookingStatus(body.Target),
		Reason:    body.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// writeDomainError maps domain error kinds onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotConflict):
		var conflict *database.ConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":  "slot conflict",
				"reason": string(conflict.Reason),
			})
			return
		}
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrValidation),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, database.ErrFieldInactive),
		errors.Is(err, models.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)
		log.Printf("http method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, recorder.status, dur)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
