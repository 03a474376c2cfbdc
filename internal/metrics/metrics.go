package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики процесса. Отдаются промохендлером на keep-alive листенере.
var (
	RelayedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchbot_relayed_messages_total",
		Help: "Messages copied between principals and the operator group.",
	}, []string{"direction"})

	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchbot_access_tokens_issued_total",
		Help: "Single-use invite tokens minted.",
	})

	GrantsApproved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchbot_grants_approved_total",
		Help: "Access grants created by operator approval.",
	}, []string{"mode"})

	GrantsRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchbot_grants_revoked_total",
		Help: "Access grants removed.",
	}, []string{"reason"})

	ScanTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchbot_expiry_scan_ticks_total",
		Help: "Completed expiry scan passes.",
	})
)
