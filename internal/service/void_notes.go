package service

import (
	"context"
	"strings"

	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/platform"
	"github.com/paylater-gateway/internal/queue"
	"github.com/paylater-gateway/internal/storage"

	"github.com/hibiken/asynq"
)

// InlineVoidNotePublisher delivers void notes straight to the platform on a
// background goroutine. It stands in for the queue producer when the queue
// is disabled, so single-process deployments still get their ledger notes.
type InlineVoidNotePublisher struct {
	Store    storage.Store
	Platform platform.API
}

// EnqueueAttachVoidNote hands the note to a goroutine and returns
// immediately. Delivery is best effort and failures are only logged.
func (p *InlineVoidNotePublisher) EnqueueAttachVoidNote(payload queue.AttachVoidNotePayload, _ ...asynq.Option) error {
	if p == nil || p.Store == nil || p.Platform == nil || strings.TrimSpace(payload.TransactionID) == "" {
		return nil
	}
	go p.deliver(payload)
	return nil
}

func (p *InlineVoidNotePublisher) deliver(payload queue.AttachVoidNotePayload) {
	ctx := context.Background()

	settings, err := p.Store.GetMerchantSettings(ctx)
	if err != nil {
		logger.Warnw("void_note_inline_settings_failed", "transaction_id", payload.TransactionID, "error", err)
		return
	}
	if settings == nil || settings.PlatformAppKey == "" || settings.PlatformAppToken == "" {
		logger.Debugw("void_note_inline_skip_no_credentials", "transaction_id", payload.TransactionID)
		return
	}

	creds := platform.Credentials{
		AppKey:   settings.PlatformAppKey,
		AppToken: settings.PlatformAppToken,
	}
	if err := p.Platform.AttachNote(ctx, creds, payload.TransactionID, payload.Note); err != nil {
		logger.Warnw("void_note_inline_failed", "transaction_id", payload.TransactionID, "error", err)
		return
	}
	logger.Infow("void_note_inline_done", "transaction_id", payload.TransactionID)
}
