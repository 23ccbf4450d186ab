package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore keeps records in a single stored_records table; sqlite for
// single-node deployments, postgres when the gateway runs replicated.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the configured SQL backend and migrates the schema.
func NewGormStore(cfg config.StorageConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrDriverUnsupported, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			logger.StdLogger(),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage failed: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage pool handle failed: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if cfg.Pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Pool.ConnMaxIdleTimeSeconds) * time.Second)
	}

	if err := db.AutoMigrate(&models.StoredRecord{}); err != nil {
		return nil, fmt.Errorf("migrate stored_records failed: %w", err)
	}

	return &GormStore{db: db}, nil
}

// newGormStoreFromDB wraps an already-open database; used by tests.
func newGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.StoredRecord{}); err != nil {
		return nil, fmt.Errorf("migrate stored_records failed: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) get(ctx context.Context, kind string, recordKey string, out interface{}) (bool, error) {
	if strings.TrimSpace(recordKey) == "" {
		return false, ErrEmptyKey
	}
	var record models.StoredRecord
	err := s.db.WithContext(ctx).
		Where("kind = ? AND record_key = ?", kind, recordKey).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s record failed: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(record.Payload), out); err != nil {
		return false, fmt.Errorf("decode %s record failed: %w", kind, err)
	}
	return true, nil
}

func (s *GormStore) set(ctx context.Context, kind string, recordKey string, value interface{}) error {
	if strings.TrimSpace(recordKey) == "" {
		return ErrEmptyKey
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s record failed: %w", kind, err)
	}
	record := models.StoredRecord{
		Kind:      kind,
		RecordKey: recordKey,
		Payload:   string(payload),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("save %s record failed: %w", kind, err)
	}
	return nil
}

// GetPaymentRequest loads a payment request, (nil, nil) when absent. The key
// is whichever identifier the caller stored under, not a field of the record.
func (s *GormStore) GetPaymentRequest(ctx context.Context, key string) (*models.PaymentRequest, error) {
	var record models.PaymentRequest
	found, err := s.get(ctx, KindPaymentRequest, key, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SavePaymentRequest stores a payment request under the given key.
func (s *GormStore) SavePaymentRequest(ctx context.Context, key string, request *models.PaymentRequest) error {
	if request == nil {
		return ErrNilRecord
	}
	return s.set(ctx, KindPaymentRequest, key, request)
}

// GetPaymentResponse loads a stored status projection, (nil, nil) when absent.
func (s *GormStore) GetPaymentResponse(ctx context.Context, paymentID string) (*models.PaymentResponse, error) {
	var record models.PaymentResponse
	found, err := s.get(ctx, KindPaymentResponse, paymentID, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SavePaymentResponse stores a status projection keyed by its payment id.
func (s *GormStore) SavePaymentResponse(ctx context.Context, response *models.PaymentResponse) error {
	if response == nil {
		return ErrNilRecord
	}
	return s.set(ctx, KindPaymentResponse, response.PaymentID, response)
}

// GetVoidRecord loads the partial-void record for a transaction.
func (s *GormStore) GetVoidRecord(ctx context.Context, transactionID string) (*models.VoidRecord, error) {
	var record models.VoidRecord
	found, err := s.get(ctx, KindVoidResponse, transactionID, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SaveVoidRecordIfAbsent inserts the void record with ON CONFLICT DO NOTHING
// on the (kind, record_key) index; RowsAffected tells whether this call won.
func (s *GormStore) SaveVoidRecordIfAbsent(ctx context.Context, record *models.VoidRecord) (bool, error) {
	if record == nil {
		return false, ErrNilRecord
	}
	if strings.TrimSpace(record.TransactionID) == "" {
		return false, ErrEmptyKey
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode %s record failed: %w", KindVoidResponse, err)
	}
	stored := models.StoredRecord{
		Kind:      KindVoidResponse,
		RecordKey: record.TransactionID,
		Payload:   string(payload),
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "record_key"}},
			DoNothing: true,
		}).
		Create(&stored)
	if result.Error != nil {
		return false, fmt.Errorf("save %s record failed: %w", KindVoidResponse, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetMerchantSettings loads the active merchant settings, (nil, nil) when
// none were stored yet.
func (s *GormStore) GetMerchantSettings(ctx context.Context) (*models.MerchantSettings, error) {
	var record models.MerchantSettings
	found, err := s.get(ctx, KindMerchantSettings, settingsKey, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SaveMerchantSettings replaces the active merchant settings.
func (s *GormStore) SaveMerchantSettings(ctx context.Context, settings *models.MerchantSettings) error {
	if settings == nil {
		return ErrNilRecord
	}
	return s.set(ctx, KindMerchantSettings, settingsKey, settings)
}

// Close closes the underlying database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
