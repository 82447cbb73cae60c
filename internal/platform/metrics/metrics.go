// Package metrics holds the Prometheus collectors for booking and
// registration outcomes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hms/hms/internal/platform/apperr"
)

const namespace = "hms"

type Metrics struct {
	bookings       *prometheus.CounterVec
	bookingLatency *prometheus.HistogramVec
	cancellations  *prometheus.CounterVec
	reschedules    *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	logins         *prometheus.CounterVec
	feedback       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_duration_seconds",
			Help:      "Time spent committing a booking, including store retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome",
		}, []string{"outcome"}),
		reschedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "reschedules_total",
			Help:      "Reschedule attempts by outcome",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "transitions_total",
			Help:      "Registration submit/approve/reject attempts by outcome",
		}, []string{"transition", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "submissions_total",
			Help:      "Feedback submissions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.bookingLatency, m.cancellations, m.reschedules, m.registrations, m.logins, m.feedback)
	return m
}

func (m *Metrics) ObserveBooking(err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := apperr.Code(err)
	m.bookings.WithLabelValues(outcome).Inc()
	m.bookingLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObserveCancellation(err error) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(apperr.Code(err)).Inc()
}

func (m *Metrics) ObserveReschedule(err error) {
	if m == nil {
		return
	}
	m.reschedules.WithLabelValues(apperr.Code(err)).Inc()
}

// ObserveRegistration counts one transition ("submit", "approve", "reject").
func (m *Metrics) ObserveRegistration(transition string, err error) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(transition, apperr.Code(err)).Inc()
}

func (m *Metrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(apperr.Code(err)).Inc()
}

func (m *Metrics) ObserveFeedback(err error) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(apperr.Code(err)).Inc()
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
