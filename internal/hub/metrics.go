package hub

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the hub's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	mu sync.Mutex

	messagesPublished   *prometheus.CounterVec
	deliveries          *prometheus.CounterVec
	sessionsPruned      prometheus.Counter
	persistenceFailures *prometheus.CounterVec
	channelsLive        prometheus.Gauge
	sessionsAttached    prometheus.Gauge
	fanoutSize          prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

func counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: "emithub", Subsystem: "hub", Name: name, Help: help}
}

func gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: "emithub", Subsystem: "hub", Name: name, Help: help}
}

// NewMetrics creates the hub collectors. A nil registerer means
// prometheus.DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer:          registerer,
		messagesPublished:   prometheus.NewCounterVec(counterOpts("messages_published_total", "Messages accepted for fan-out, by message type"), []string{"type"}),
		deliveries:          prometheus.NewCounterVec(counterOpts("deliveries_total", "Per-session delivery attempts, by result"), []string{"result"}),
		sessionsPruned:      prometheus.NewCounter(counterOpts("sessions_pruned_total", "Sessions dropped after a failed delivery")),
		persistenceFailures: prometheus.NewCounterVec(counterOpts("persistence_failures_total", "Durable store writes that failed, by table"), []string{"table"}),
		channelsLive:        prometheus.NewGauge(gaugeOpts("channels_live", "Channels held in the in-memory registry")),
		sessionsAttached:    prometheus.NewGauge(gaugeOpts("sessions_attached", "Sessions currently attached across all channels")),
		fanoutSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emithub",
			Subsystem: "hub",
			Name:      "fanout_size",
			Help:      "Sessions targeted per broadcast",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	collectors := []prometheus.Collector{
		m.messagesPublished,
		m.deliveries,
		m.sessionsPruned,
		m.persistenceFailures,
		m.channelsLive,
		m.sessionsAttached,
		m.fanoutSize,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

func (m *Metrics) published(msgType string) {
	if m == nil {
		return
	}
	m.messagesPublished.WithLabelValues(msgType).Inc()
}

func (m *Metrics) delivered(sent, failed, targeted int) {
	if m == nil {
		return
	}
	m.fanoutSize.Observe(float64(targeted))
	if sent > 0 {
		m.deliveries.WithLabelValues("sent").Add(float64(sent))
	}
	if failed > 0 {
		m.deliveries.WithLabelValues("failed").Add(float64(failed))
		m.sessionsPruned.Add(float64(failed))
		m.sessionsAttached.Sub(float64(failed))
	}
}

func (m *Metrics) persistFailed(table string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(table).Inc()
}

func (m *Metrics) setChannels(n int) {
	if m == nil {
		return
	}
	m.channelsLive.Set(float64(n))
}

func (m *Metrics) sessionsDelta(d int) {
	if m == nil || d == 0 {
		return
	}
	m.sessionsAttached.Add(float64(d))
}
