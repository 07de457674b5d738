package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hadirku_tokens_issued_total",
		Help: "Attendance tokens issued.",
	})
	scansRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hadirku_scans_recorded_total",
		Help: "Attendance records written, by status.",
	}, []string{"status"})
	scansRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hadirku_scans_rejected_total",
		Help: "Rejected scan attempts, by reason.",
	}, []string{"reason"})
)
