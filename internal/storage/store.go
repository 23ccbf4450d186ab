package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/models"
)

// Record kinds partition the key space of the store.
const (
	KindPaymentRequest   = "payment-request"
	KindPaymentResponse  = "payment-response"
	KindVoidResponse     = "void-response"
	KindMerchantSettings = "merchant-settings"
)

// settingsKey is the fixed record key for merchant settings; there is a
// single active settings document per deployment.
const settingsKey = "active"

var (
	ErrEmptyKey          = errors.New("storage: empty record key")
	ErrNilRecord         = errors.New("storage: nil record")
	ErrDriverUnsupported = errors.New("storage: unsupported driver")
)

// Store persists the gateway's payment state. Get methods return (nil, nil)
// when no record exists. Save methods overwrite, except SaveVoidRecordIfAbsent
// which writes only when no record is present and reports whether this call
// created it.
type Store interface {
	GetPaymentRequest(ctx context.Context, key string) (*models.PaymentRequest, error)
	SavePaymentRequest(ctx context.Context, key string, request *models.PaymentRequest) error

	GetPaymentResponse(ctx context.Context, paymentID string) (*models.PaymentResponse, error)
	SavePaymentResponse(ctx context.Context, response *models.PaymentResponse) error

	GetVoidRecord(ctx context.Context, transactionID string) (*models.VoidRecord, error)
	SaveVoidRecordIfAbsent(ctx context.Context, record *models.VoidRecord) (bool, error)

	GetMerchantSettings(ctx context.Context) (*models.MerchantSettings, error)
	SaveMerchantSettings(ctx context.Context, settings *models.MerchantSettings) error

	Close() error
}

// Open builds the store selected by the storage config.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "sqlite", "postgres":
		return NewGormStore(cfg.Storage)
	default:
		return nil, fmt.Errorf("%w: %s", ErrDriverUnsupported, cfg.Storage.Driver)
	}
}
