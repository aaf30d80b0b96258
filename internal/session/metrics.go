package session

import "github.com/prometheus/client_golang/prometheus"

var (
	liveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "game_sessions_live",
		Help: "Live game sessions across all kinds",
	})
	SweptSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_sessions_swept_total",
			Help: "Sessions evicted by the idle sweeper",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(liveSessions)
	prometheus.MustRegister(SweptSessions)
}
