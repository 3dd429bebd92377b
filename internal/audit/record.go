// Package audit implements the audit trail for chat turns: every
// request is appended as a row for compliance review and RAG-quality
// monitoring, decoupled from the request path by an asynq queue so a
// slow or unavailable database never adds latency to a chat response.
// Grounded on the source system's ChatAuditService (buffered,
// fire-and-forget, failures never propagate to the caller) and the
// teacher's gorm repository pattern (custom_agent.go).
package audit

import (
	"time"

	"gorm.io/gorm"
)

// Record is one persisted audit row for a completed chat turn.
type Record struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID        string    `gorm:"size:64;index" json:"request_id"`
	SessionID        string    `gorm:"size:64;index" json:"session_id"`
	Question         string    `gorm:"type:text" json:"question"`
	AnswerFound      bool      `json:"answer_found"`
	Confidence       string    `gorm:"size:32" json:"confidence"`
	SafetyFlags      string    `gorm:"type:text" json:"safety_flags"`
	NeedsHumanReview bool      `gorm:"index" json:"needs_human_review"`
	PipelineVariant  string    `gorm:"size:32" json:"pipeline_variant"`
	DurationMS       int64     `json:"duration_ms"`
	Metrics          string    `gorm:"type:jsonb" json:"metrics"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName pins the table name regardless of gorm's pluralization
// rules, since "records" alone would be ambiguous once other audit
// trails exist.
func (Record) TableName() string {
	return "chat_audit_records"
}

// Repository persists and queries audit records.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a Repository over db. AutoMigrate is left to
// the caller's startup sequence, matching the teacher's convention of
// migrating all models together at boot.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create appends one audit row.
func (r *Repository) Create(rec *Record) error {
	return r.db.Create(rec).Error
}

// ListByDateRange returns records created in [from, to), newest first,
// for the admin review surfaces described in the spec's audit query
// operations.
func (r *Repository) ListByDateRange(from, to time.Time, limit int) ([]Record, error) {
	var out []Record
	q := r.db.Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListNeedingReview returns records flagged for human review, oldest
// first so reviewers work through a FIFO queue.
func (r *Repository) ListNeedingReview(limit int) ([]Record, error) {
	var out []Record
	q := r.db.Where("needs_human_review = ?", true).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
