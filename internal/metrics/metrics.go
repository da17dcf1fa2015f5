package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fieldbook",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbook",
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected by the conflict guard, by reason.",
		},
		[]string{"reason"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbook",
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle transitions, by target status.",
		},
		[]string{"to"},
	)

	availabilityRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fieldbook",
			Name:      "availability_requests_total",
			Help:      "Day availability resolutions served.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingConflicts,
			bookingTransitions,
			availabilityRequests,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a successful reservation.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncConflict counts a rejected booking request by reason.
func IncConflict(reason string) {
	bookingConflicts.WithLabelValues(reason).Inc()
}

// IncTransition counts a lifecycle transition by target status.
func IncTransition(to string) {
	bookingTransitions.WithLabelValues(to).Inc()
}

// IncAvailability counts one resolved day.
func IncAvailability() {
	availabilityRequests.Inc()
}
