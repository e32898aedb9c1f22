package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for slot browsing and booking.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	windowDuration  prometheus.Histogram
	slotsPerWindow  prometheus.Histogram
	outboxPublished prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking requests by outcome",
		}, []string{"outcome"}),
		windowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicbook",
			Subsystem: "slots",
			Name:      "window_build_seconds",
			Help:      "Time spent computing one week of available slots",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05},
		}),
		slotsPerWindow: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicbook",
			Subsystem: "slots",
			Name:      "window_slots",
			Help:      "Number of offerable slots in a computed week",
			Buckets:   prometheus.LinearBuckets(0, 20, 8),
		}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events relayed to Kafka",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.windowDuration, m.slotsPerWindow, m.outboxPublished)
	return m
}

// ObserveBooking counts one booking attempt; outcome is e.g. "booked", "slot_taken".
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveWindow(seconds float64, slots int) {
	if m == nil {
		return
	}
	m.windowDuration.Observe(seconds)
	m.slotsPerWindow.Observe(float64(slots))
}

func (m *BookingMetrics) ObserveOutboxPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.outboxPublished.Add(float64(n))
}
