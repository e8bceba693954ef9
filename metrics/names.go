package metrics

// Metric names shared by the publish and outbox packages, generalized
// from the reference stack's per-metric vars (deliveredCounter,
// failedCounter, batchDuration, dlqCounter, markedSyncedCounter in
// internal/outbox/metrics.go and dlq_metrics.go) into one namespaced
// vocabulary so a single Sink implementation covers both subsystems.
const (
	PublishAttemptsTotal = "publish_attempts_total"
	PublishSuccessTotal  = "publish_success_total"
	PublishFailureTotal  = "publish_failure_total"
	PublishDLQTotal      = "publish_dlq_total"
	PublishBackupTotal   = "publish_backup_total"
	PublishDuration      = "publish_duration_seconds"

	OutboxBatchDuration      = "outbox_batch_duration_seconds"
	OutboxDeliveredTotal     = "outbox_events_delivered_total"
	OutboxFailedTotal        = "outbox_events_failed_total"
	OutboxDLQTotal           = "outbox_events_dlq_total"
	OutboxBacklogGauge       = "outbox_backlog"
	OutboxCircuitStateGauge  = "outbox_circuit_breaker_state"
	OutboxDLQRequeuedTotal   = "outbox_dlq_requeued_total"
	OutboxDLQQuarantineTotal = "outbox_dlq_quarantined_total"
)

// Labels used with the names above.
const (
	LabelTopic    = "topic"
	LabelStrategy = "strategy"
	LabelReason   = "reason"
)
