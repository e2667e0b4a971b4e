package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
//
// All metrics are prefixed with "companion_":
//   - companion_ticks_total
//   - companion_tick_duration_seconds
//   - companion_signals_total{kind}
//   - companion_signals_rejected_total{kind}
//   - companion_signals_dropped_total
//   - companion_overrides_total{tag}
//   - companion_blinks_total
//   - companion_idle_talk_total{result}
//   - companion_async_failures_total{task}
//   - companion_pad{axis}
//   - companion_mood{axis}
type Metrics struct {
	Ticks         prometheus.Counter
	TickDuration  prometheus.Histogram
	Signals       *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	Dropped       prometheus.Counter
	Overrides     *prometheus.CounterVec
	Blinks        prometheus.Counter
	IdleTalk      *prometheus.CounterVec
	AsyncFailures *prometheus.CounterVec
	PAD           *prometheus.GaugeVec
	Mood          *prometheus.GaugeVec
}

// NewMetrics registers the engine collectors with reg. A nil reg gets a
// private registry so several engines can coexist in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "companion_ticks_total",
			Help: "Total number of engine ticks",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_tick_duration_seconds",
			Help:    "Duration of one engine tick in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10µs to ~20ms
		}),
		Signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_signals_total",
			Help: "Total number of inbound signals applied",
		}, []string{"kind"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_signals_rejected_total",
			Help: "Total number of inbound signals rejected as invalid",
		}, []string{"kind"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "companion_signals_dropped_total",
			Help: "Total number of inbound signals dropped on a full mailbox",
		}),
		Overrides: f.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_overrides_total",
			Help: "Total number of emotion overrides set",
		}, []string{"tag"}),
		Blinks: f.NewCounter(prometheus.CounterOpts{
			Name: "companion_blinks_total",
			Help: "Total number of blinks",
		}),
		IdleTalk: f.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_idle_talk_total",
			Help: "Idle talk requests by result",
		}, []string{"result"}), // "requested", "spoken", "cancelled", "failed"
		AsyncFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_async_failures_total",
			Help: "Failed fire-and-forget side effects",
		}, []string{"task"}),
		PAD: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "companion_pad",
			Help: "Current PAD value",
		}, []string{"axis"}),
		Mood: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "companion_mood",
			Help: "Current long-term mood",
		}, []string{"axis"}),
	}
}

func (m *Metrics) observe(s Snapshot) {
	m.PAD.WithLabelValues("pleasure").Set(s.PAD.Pleasure)
	m.PAD.WithLabelValues("arousal").Set(s.PAD.Arousal)
	m.PAD.WithLabelValues("dominance").Set(s.PAD.Dominance)
	m.Mood.WithLabelValues("mood").Set(s.Mood.Mood)
	m.Mood.WithLabelValues("energy").Set(s.Mood.Energy)
	m.Mood.WithLabelValues("trust").Set(s.Mood.Trust)
}
