package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paylater-gateway/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:storage_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	store, err := newGormStoreFromDB(db)
	if err != nil {
		t.Fatalf("init test store: %v", err)
	}
	return store
}

func TestPaymentRequestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	loaded, err := store.GetPaymentRequest(ctx, "missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for missing record, got %+v", loaded)
	}

	request := &models.PaymentRequest{
		PaymentID:   "pay-1",
		OrderID:     "order-1",
		Value:       models.NewMoneyFromMinorUnits(10050),
		Currency:    "USD",
		CallbackURL: "https://platform.example/callback",
	}
	if err := store.SavePaymentRequest(ctx, "pay-1", request); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = store.GetPaymentRequest(ctx, "pay-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected stored record")
	}
	if loaded.OrderID != "order-1" || loaded.Currency != "USD" {
		t.Fatalf("unexpected record: %+v", loaded)
	}
	if loaded.Value.ToMinorUnits() != 10050 {
		t.Fatalf("value lost precision: %s", loaded.Value)
	}

	// Overwrite with the authorized transaction id.
	request.TransactionID = "TX-9"
	if err := store.SavePaymentRequest(ctx, "pay-1", request); err != nil {
		t.Fatalf("update: %v", err)
	}
	loaded, err = store.GetPaymentRequest(ctx, "pay-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !loaded.Authorized() {
		t.Fatalf("expected authorized record, got %+v", loaded)
	}
}

func TestPaymentResponseRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	response := &models.PaymentResponse{
		PaymentID:     "pay-2",
		Status:        "undefined",
		DelayToCancel: 1800,
		PaymentAppData: &models.PaymentAppData{
			AppName: "paylater-payment-flow",
			Payload: `{"paymentIdentifier":"ident-2"}`,
		},
	}
	if err := store.SavePaymentResponse(ctx, response); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.GetPaymentResponse(ctx, "pay-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil || loaded.Status != "undefined" {
		t.Fatalf("unexpected response: %+v", loaded)
	}
	if loaded.PaymentAppData == nil || loaded.PaymentAppData.AppName != "paylater-payment-flow" {
		t.Fatalf("app data lost: %+v", loaded.PaymentAppData)
	}
}

func TestKindsDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SavePaymentRequest(ctx, "shared-id", &models.PaymentRequest{PaymentID: "shared-id"}); err != nil {
		t.Fatalf("save request: %v", err)
	}
	if err := store.SavePaymentResponse(ctx, &models.PaymentResponse{PaymentID: "shared-id", Status: "denied"}); err != nil {
		t.Fatalf("save response: %v", err)
	}

	request, err := store.GetPaymentRequest(ctx, "shared-id")
	if err != nil || request == nil {
		t.Fatalf("request lookup: %+v, %v", request, err)
	}
	response, err := store.GetPaymentResponse(ctx, "shared-id")
	if err != nil || response == nil || response.Status != "denied" {
		t.Fatalf("response lookup: %+v, %v", response, err)
	}
}

func TestSaveVoidRecordIfAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &models.VoidRecord{
		TransactionID: "TX-1",
		VoidID:        "void-1",
		Amount:        2500,
		Currency:      "USD",
	}
	created, err := store.SaveVoidRecordIfAbsent(ctx, record)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !created {
		t.Fatal("first save should create the record")
	}

	duplicate := &models.VoidRecord{TransactionID: "TX-1", VoidID: "void-2", Amount: 9999}
	created, err = store.SaveVoidRecordIfAbsent(ctx, duplicate)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if created {
		t.Fatal("second save must not overwrite the record")
	}

	loaded, err := store.GetVoidRecord(ctx, "TX-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil || loaded.VoidID != "void-1" || loaded.Amount != 2500 {
		t.Fatalf("original record lost: %+v", loaded)
	}
}

func TestSaveVoidRecordIfAbsentConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			record := &models.VoidRecord{
				TransactionID: "TX-race",
				VoidID:        fmt.Sprintf("void-%d", n),
				Amount:        int64(n),
			}
			created, err := store.SaveVoidRecordIfAbsent(ctx, record)
			if err != nil {
				t.Errorf("worker %d: %v", n, err)
				return
			}
			if created {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestMerchantSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	loaded, err := store.GetMerchantSettings(ctx)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil before first save, got %+v", loaded)
	}

	settings := &models.MerchantSettings{
		IsLive:                    true,
		CompanyName:               "Acme Outfitters",
		DelayToCancel:             6,
		DelayInterval:             "Hours",
		EnablePartialCancellation: true,
	}
	if err := store.SaveMerchantSettings(ctx, settings); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = store.GetMerchantSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil || !loaded.IsLive || loaded.DelayInterval != "Hours" {
		t.Fatalf("unexpected settings: %+v", loaded)
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SavePaymentRequest(ctx, "", &models.PaymentRequest{}); err == nil {
		t.Fatal("expected error for empty record key")
	}
	if _, err := store.GetPaymentRequest(ctx, ""); err == nil {
		t.Fatal("expected error for empty lookup key")
	}
}
