package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// audit records every moderation decision in machine-readable form,
	// separately from the operational logrus stream.
	audit *zap.Logger

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negahban_violations_total",
			Help: "Content violations detected, by reason",
		},
		[]string{"reason"},
	)

	suspensionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negahban_suspensions_total",
			Help: "Suspension attempts after the warning threshold, by outcome",
		},
		[]string{"outcome"},
	)

	quarantinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "negahban_quarantines_total",
			Help: "Media messages routed to the approver",
		},
	)

	approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negahban_approvals_total",
			Help: "Approver decisions, by verdict",
		},
		[]string{"decision"},
	)

	pendingApprovals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "negahban_pending_approvals",
			Help: "Quarantined items still waiting for a decision",
		},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "negahban_message_processing_duration_seconds",
			Help:    "Time spent processing inbound updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init(ctx context.Context, listenAddr string) error {
	var err error
	audit, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(
		violationsTotal,
		suspensionsTotal,
		quarantinesTotal,
		approvalsTotal,
		pendingApprovals,
		messageProcessingDuration,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: listenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// excerptLimit bounds audit log entries to the first runes of the
// offending content. Truncation happens on rune boundaries so Persian
// text never ends in a broken UTF-8 sequence.
const excerptLimit = 100

func truncateExcerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptLimit {
		return s
	}
	return string(runes[:excerptLimit])
}

// RecordViolation counts a detected violation and writes the audit event.
func RecordViolation(reason string, chatID int64, userID int64, username string, excerpt string) {
	violationsTotal.WithLabelValues(reason).Inc()
	if audit == nil {
		return
	}
	excerpt = truncateExcerpt(excerpt)
	audit.Warn("violation",
		zap.String("reason", reason),
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.String("username", username),
		zap.String("content", excerpt),
	)
}

func RecordSuspension(succeeded bool) {
	outcome := "enforced"
	if !succeeded {
		outcome = "failed"
	}
	suspensionsTotal.WithLabelValues(outcome).Inc()
}

func RecordQuarantine(chatID int64, userID int64) {
	quarantinesTotal.Inc()
	pendingApprovals.Inc()
	if audit != nil {
		audit.Info("quarantine", zap.Int64("chat_id", chatID), zap.Int64("user_id", userID))
	}
}

func RecordApproval(decision string, chatID int64, userID int64) {
	approvalsTotal.WithLabelValues(decision).Inc()
	pendingApprovals.Dec()
	if audit != nil {
		audit.Info("approval", zap.String("decision", decision), zap.Int64("chat_id", chatID), zap.Int64("user_id", userID))
	}
}

// SetPendingApprovals seeds the backlog gauge from storage on startup,
// so leaked entries stay visible across restarts.
func SetPendingApprovals(count int) {
	pendingApprovals.Set(float64(count))
}

// StartMessageProcessing returns a completion callback that observes the
// processing duration under the final status label.
func StartMessageProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		messageProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
