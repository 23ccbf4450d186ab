package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/platform"
	"github.com/paylater-gateway/internal/provider"
	"github.com/paylater-gateway/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer handles the gateway's background tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register wires task handlers into the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAttachVoidNote, c.handleAttachVoidNote)
}

// handleAttachVoidNote delivers a partial-void note to the platform
// transaction ledger. The note is best effort: permanently invalid payloads
// are dropped, transient platform failures are retried by asynq.
func (c *Consumer) handleAttachVoidNote(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_attach_void_note_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AttachVoidNotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_attach_void_note_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.TransactionID) == "" {
		logger.Debugw("worker_attach_void_note_skip_empty_transaction")
		return nil
	}
	if c.Platform == nil {
		logger.Warnw("worker_attach_void_note_skip_platform_nil", "transaction_id", payload.TransactionID)
		return nil
	}

	settings, err := c.Store.GetMerchantSettings(ctx)
	if err != nil {
		logger.Warnw("worker_attach_void_note_settings_failed", "transaction_id", payload.TransactionID, "error", err)
		return err
	}
	if settings == nil || settings.PlatformAppKey == "" || settings.PlatformAppToken == "" {
		logger.Debugw("worker_attach_void_note_skip_no_credentials", "transaction_id", payload.TransactionID)
		return nil
	}

	creds := platform.Credentials{
		AppKey:   settings.PlatformAppKey,
		AppToken: settings.PlatformAppToken,
	}
	if err := c.Platform.AttachNote(ctx, creds, payload.TransactionID, payload.Note); err != nil {
		logger.Warnw("worker_attach_void_note_failed",
			"transaction_id", payload.TransactionID,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_attach_void_note_done", "transaction_id", payload.TransactionID)
	return nil
}
