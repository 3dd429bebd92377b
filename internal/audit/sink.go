package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/sajor2000/chatcore/internal/logger"
	"github.com/sajor2000/chatcore/internal/types/interfaces"
)

// TaskTypeRecord is the asynq task type for one audit record enqueue.
const TaskTypeRecord = "audit:record"

// QueueSink implements interfaces.AuditSink by enqueueing each record
// onto an asynq queue rather than writing it inline, so a database
// outage or slow write can never add latency to the user-facing
// response path.
type QueueSink struct {
	client *asynq.Client
	queue  string
}

// NewQueueSink builds a QueueSink over an asynq client targeting
// queue (e.g. "audit").
func NewQueueSink(client *asynq.Client, queue string) *QueueSink {
	return &QueueSink{client: client, queue: queue}
}

// Record enqueues rec for asynchronous persistence. Enqueue failures
// are logged, never returned as a hard error to the orchestrator,
// matching the source system's "audit failures are never critical"
// rule: an enqueue failure returns nil. The only error returned is a
// failure to marshal rec.
func (s *QueueSink) Record(ctx context.Context, rec interfaces.AuditRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}

	task := asynq.NewTask(TaskTypeRecord, payload)
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue(s.queue)); err != nil {
		logger.Errorf(ctx, "audit: enqueue failed (non-critical): %v", err)
		return nil
	}
	return nil
}

// toRow converts the transport-level AuditRecord into the persisted
// Record shape.
func toRow(rec interfaces.AuditRecord) (*Record, error) {
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return nil, err
	}
	return &Record{
		RequestID:        rec.RequestID,
		SessionID:        rec.SessionID,
		Question:         rec.Question,
		AnswerFound:      rec.AnswerFound,
		Confidence:       string(rec.Confidence),
		SafetyFlags:      strings.Join(rec.SafetyFlags, ","),
		NeedsHumanReview: rec.NeedsHumanReview,
		PipelineVariant:  rec.PipelineVariant,
		DurationMS:       rec.DurationMS,
		Metrics:          string(metrics),
	}, nil
}
