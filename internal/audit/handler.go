package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sajor2000/chatcore/internal/types/interfaces"
)

// TaskHandler consumes audit:record tasks off the queue and persists
// them via Repository, implementing interfaces.TaskHandler so it can
// register on the same asynq server/mux the rest of the application's
// background workers use.
type TaskHandler struct {
	repo *Repository
}

// NewTaskHandler builds a TaskHandler writing through repo.
func NewTaskHandler(repo *Repository) *TaskHandler {
	return &TaskHandler{repo: repo}
}

var _ interfaces.TaskHandler = (*TaskHandler)(nil)

// Handle decodes one audit:record task payload and appends it to the
// audit table.
func (h *TaskHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var rec interfaces.AuditRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return fmt.Errorf("audit: unmarshal task: %w", err)
	}

	row, err := toRow(rec)
	if err != nil {
		return fmt.Errorf("audit: build row: %w", err)
	}

	if err := h.repo.Create(row); err != nil {
		return fmt.Errorf("audit: persist record: %w", err)
	}
	return nil
}
