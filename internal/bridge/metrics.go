package bridge

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts bridge traffic. One Metrics may be shared by many sessions.
type Metrics struct {
	LinesIn      prometheus.Counter
	LinesOut     prometheus.Counter
	Ignored      prometheus.Counter
	Violations   prometheus.Counter
	ActionErrors prometheus.Counter
	AgentRunning prometheus.Gauge
}

// NewMetrics creates the bridge metrics and registers them on reg.
// A nil reg leaves them unregistered (still usable, just not exported).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mjbridge_lines_in_total",
			Help: "Non-blank records received from agent processes",
		}),
		LinesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mjbridge_lines_out_total",
			Help: "Records written to agent processes",
		}),
		Ignored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mjbridge_lines_ignored_total",
			Help: "Agent records with an unknown verb",
		}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mjbridge_protocol_violations_total",
			Help: "Agent records rejected as protocol violations",
		}),
		ActionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mjbridge_action_errors_total",
			Help: "Engine actions that returned an error",
		}),
		AgentRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mjbridge_agents_running",
			Help: "Agent processes currently attached to a session",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LinesIn, m.LinesOut, m.Ignored, m.Violations, m.ActionErrors, m.AgentRunning)
	}
	return m
}
