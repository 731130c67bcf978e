package observability

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	Registry *prometheus.Registry

	installed   *prometheus.CounterVec
	removed     *prometheus.CounterVec
	active      prometheus.Gauge
	reactions   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	armed       prometheus.Gauge
}

// NewMetrics creates and registers the dgwatch collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		installed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dgwatch_subscriptions_installed_total",
				Help: "Total number of host callbacks installed",
			},
			[]string{"kind"},
		),
		removed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dgwatch_subscriptions_removed_total",
				Help: "Total number of host callbacks released",
			},
			[]string{"kind"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dgwatch_subscriptions_active",
			Help: "Subscriptions currently held by the registry",
		}),
		reactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dgwatch_reactions_total",
				Help: "Reactions to translateX changes, by result",
			},
			[]string{"result"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dgwatch_watcher_transitions_total",
				Help: "Connection watcher state changes, by destination state",
			},
			[]string{"to"},
		),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dgwatch_watchers_armed",
			Help: "Connection watchers currently armed on a target",
		}),
	}
	m.Registry.MustRegister(m.installed, m.removed, m.active, m.reactions, m.transitions, m.armed)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInstall: func(e *domain.SubscriptionEvent) {
			m.installed.WithLabelValues(string(e.Kind)).Inc()
			m.active.Inc()
		},
		OnRemove: func(e *domain.SubscriptionEvent) {
			m.removed.WithLabelValues(string(e.Kind)).Inc()
			m.active.Dec()
		},
		OnReact: func(e *domain.ReactionEvent) {
			result := "applied"
			if e.Skipped != "" {
				result = "skipped"
			}
			m.reactions.WithLabelValues(result).Inc()
		},
		OnWatcherTransition: func(e *domain.WatcherEvent) {
			m.transitions.WithLabelValues(e.To).Inc()
			if e.To == "armed" {
				m.armed.Inc()
			} else if e.From == "armed" {
				m.armed.Dec()
			}
		},
	}
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// LogHooks returns hooks that log every lifecycle event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInstall: func(e *domain.SubscriptionEvent) {
			logger.Debug("subscription_install", "handle", e.Handle, "target", e.Target, "kind", e.Kind)
		},
		OnRemove: func(e *domain.SubscriptionEvent) {
			logger.Debug("subscription_remove", "handle", e.Handle, "target", e.Target, "kind", e.Kind)
		},
		OnReact: func(e *domain.ReactionEvent) {
			logger.Debug("reaction", "target", e.Target, "x", e.X, "y", e.Y, "z", e.Z, "skipped", e.Skipped)
		},
		OnWatcherTransition: func(e *domain.WatcherEvent) {
			logger.Debug("watcher_transition", "node", e.Node, "target", e.Target, "from", e.From, "to", e.To)
		},
	}
}

// Combine fans each hook out to every non-nil hook in list, in order.
func Combine(list ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range list {
		if h.OnInstall != nil {
			prev := out.OnInstall
			out.OnInstall = func(e *domain.SubscriptionEvent) {
				if prev != nil {
					prev(e)
				}
				h.OnInstall(e)
			}
		}
		if h.OnRemove != nil {
			prev := out.OnRemove
			out.OnRemove = func(e *domain.SubscriptionEvent) {
				if prev != nil {
					prev(e)
				}
				h.OnRemove(e)
			}
		}
		if h.OnReact != nil {
			prev := out.OnReact
			out.OnReact = func(e *domain.ReactionEvent) {
				if prev != nil {
					prev(e)
				}
				h.OnReact(e)
			}
		}
		if h.OnWatcherTransition != nil {
			prev := out.OnWatcherTransition
			out.OnWatcherTransition = func(e *domain.WatcherEvent) {
				if prev != nil {
					prev(e)
				}
				h.OnWatcherTransition(e)
			}
		}
	}
	return out
}
