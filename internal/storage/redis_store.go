package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as JSON strings in Redis. Records carry no TTL;
// payment history must survive indefinitely for idempotent retries.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "plg"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(kind string, recordKey string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, recordKey)
}

func (s *RedisStore) get(ctx context.Context, kind string, recordKey string, out interface{}) (bool, error) {
	if strings.TrimSpace(recordKey) == "" {
		return false, ErrEmptyKey
	}
	raw, err := s.client.Get(ctx, s.key(kind, recordKey)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s failed: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s record failed: %w", kind, err)
	}
	return true, nil
}

func (s *RedisStore) set(ctx context.Context, kind string, recordKey string, record interface{}) error {
	if strings.TrimSpace(recordKey) == "" {
		return ErrEmptyKey
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record failed: %w", kind, err)
	}
	if err := s.client.Set(ctx, s.key(kind, recordKey), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", kind, err)
	}
	return nil
}

// GetPaymentRequest loads a payment request, (nil, nil) when absent. The key
// is whichever identifier the caller stored under, not a field of the record.
func (s *RedisStore) GetPaymentRequest(ctx context.Context, key string) (*models.PaymentRequest, error) {
	var record models.PaymentRequest
	found, err := s.get(ctx, KindPaymentRequest, key, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SavePaymentRequest stores a payment request under the given key.
func (s *RedisStore) SavePaymentRequest(ctx context.Context, key string, request *models.PaymentRequest) error {
	if request == nil {
		return ErrNilRecord
	}
	return s.set(ctx, KindPaymentRequest, key, request)
}

// GetPaymentResponse loads a stored status projection, (nil, nil) when absent.
func (s *RedisStore) GetPaymentResponse(ctx context.Context, paymentID string) (*models.PaymentResponse, error) {
	var record models.PaymentResponse
	found, err := s.get(ctx, KindPaymentResponse, paymentID, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SavePaymentResponse stores a status projection keyed by its payment id.
func (s *RedisStore) SavePaymentResponse(ctx context.Context, response *models.PaymentResponse) error {
	if response == nil {
		return ErrNilRecord
	}
	return s.set(ctx, KindPaymentResponse, response.PaymentID, response)
}

// GetVoidRecord loads the partial-void record for a transaction.
func (s *RedisStore) GetVoidRecord(ctx context.Context, transactionID string) (*models.VoidRecord, error) {
	var record models.VoidRecord
	found, err := s.get(ctx, KindVoidResponse, transactionID, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SaveVoidRecordIfAbsent writes the void record only when none exists yet,
// using SETNX so concurrent captures cannot both claim the void.
func (s *RedisStore) SaveVoidRecordIfAbsent(ctx context.Context, record *models.VoidRecord) (bool, error) {
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
	created, err := s.client.SetNX(ctx, s.key(KindVoidResponse, record.TransactionID), payload, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s failed: %w", KindVoidResponse, err)
	}
	return created, nil
}

// GetMerchantSettings loads the active merchant settings, (nil, nil) when
// none were stored yet.
func (s *RedisStore) GetMerchantSettings(ctx context.Context) (*models.MerchantSettings, error) {
	var record models.MerchantSettings
	found, err := s.get(ctx, KindMerchantSettings, settingsKey, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// SaveMerchantSettings replaces the active merchant settings.
func (s *RedisStore) SaveMerchantSettings(ctx context.Context, settings *models.MerchantSettings) error {
	if settings == nil {
		return ErrNilRecord
	}
	return s.set(ctx, KindMerchantSettings, settingsKey, settings)
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
