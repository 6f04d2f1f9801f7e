// Package metrics defines all custom Prometheus metrics for the portal. It is
// the single source of truth for metric names, labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init, so
// importing the package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Account metrics ───────────────────────────────────────────────────────────

// LoginAttemptsTotal counts sign-in attempts.
// Label:
//   - result: "success", "invalid", "unconfirmed", "locked_out", "two_factor" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of sign-in attempts, labelled by outcome.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts self-service registrations.
// Label:
//   - result: "success", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, labelled by outcome.",
	},
	[]string{"result"},
)

// AccountFlowsTotal counts the email-driven account flows.
// Labels:
//   - flow: "confirm_email", "forgot_password", "reset_password" or "two_factor"
//   - result: "success" or "failure"
var AccountFlowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_flows_total",
		Help:      "Total number of confirmation, reset and second-factor requests.",
	},
	[]string{"flow", "result"},
)

// ── Administration metrics ────────────────────────────────────────────────────

// AdminOperationsTotal counts user administration operations.
// Labels:
//   - operation: "create", "update", "delete" or "change_role"
//   - result: "success" or "failure"
var AdminOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_operations_total",
		Help:      "Total number of user administration operations.",
	},
	[]string{"operation", "result"},
)

// ── Activity archive metrics ──────────────────────────────────────────────────

// ArchiveQueueDepth tracks activities waiting in each archive worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ArchiveQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "archive_queue_depth",
		Help:      "Current number of activities pending in each archive worker channel.",
	},
	[]string{"worker_id"},
)

// ArchiveResultsTotal counts archive outcomes.
// Label:
//   - result: "archived", "failed" or "dropped"
var ArchiveResultsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_results_total",
		Help:      "Total number of activities sent to the archive, labelled by outcome.",
	},
	[]string{"result"},
)

// ArchiveDuration measures a single archive write.
var ArchiveDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "archive_duration_seconds",
		Help:      "Duration of a single activity archive write.",
		Buckets:   prometheus.DefBuckets,
	},
)
