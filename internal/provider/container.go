package provider

import (
	"fmt"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/lender"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/platform"
	"github.com/paylater-gateway/internal/queue"
	"github.com/paylater-gateway/internal/service"
	"github.com/paylater-gateway/internal/storage"
)

// Container is the dependency injection container shared by the HTTP
// handlers and the worker.
type Container struct {
	Config      *config.Config
	Store       storage.Store
	Lender      lender.API
	Platform    platform.API
	QueueClient *queue.Client

	PaymentService *service.PaymentService
}

// NewContainer opens the store and builds the API clients and services.
func NewContainer(cfg *config.Config) (*Container, error) {
	store, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store failed: %w", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	c := &Container{
		Config:      cfg,
		Store:       store,
		Lender:      lender.NewClient(cfg.Lender),
		Platform:    platform.NewClient(cfg.Platform),
		QueueClient: queueClient,
	}

	// Without a running queue the void notes go straight to the platform
	// instead of being dropped.
	var voidNotes service.VoidNotePublisher
	if queueClient != nil && queueClient.Enabled() {
		voidNotes = queueClient
	} else {
		voidNotes = &service.InlineVoidNotePublisher{
			Store:    c.Store,
			Platform: c.Platform,
		}
	}
	c.PaymentService = service.NewPaymentService(
		c.Store,
		c.Lender,
		c.Platform,
		voidNotes,
		cfg.Gateway.MinimumDelayToCancelSeconds,
	)

	return c, nil
}

// Close releases the container's long-lived resources.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_failed", "error", err)
		}
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
