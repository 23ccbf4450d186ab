package queue

import (
	"encoding/json"

	"github.com/paylater-gateway/internal/constants"

	"github.com/hibiken/asynq"
)

// TaskAttachVoidNote attaches a partial-void summary to the platform
// transaction's additional data.
const TaskAttachVoidNote = constants.TaskAttachVoidNote

// AttachVoidNotePayload carries the note for one transaction.
type AttachVoidNotePayload struct {
	TransactionID string `json:"transaction_id"`
	Note          string `json:"note"`
}

// NewAttachVoidNoteTask builds the attach-note task.
func NewAttachVoidNoteTask(payload AttachVoidNotePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAttachVoidNote, body), nil
}
