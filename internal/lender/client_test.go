package lender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paylater-gateway/internal/config"

	"github.com/shopspring/decimal"
)

func decimalFromString(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return parsed
}

func newTestClient(liveURL string, sandboxURL string, fundingURL string) *Client {
	return NewClient(config.LenderConfig{
		LiveBaseURL:    liveURL,
		SandboxBaseURL: sandboxURL,
		FundingBaseURL: fundingURL,
		TimeoutMS:      2000,
	})
}

func TestAuthorizeSendsTokenAndBasicAuth(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "TX-1",
			"amount": 1000,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, "http://unused.invalid", "")
	creds := Credentials{PublicKey: "pub", PrivateKey: "priv"}
	result, err := client.Authorize(context.Background(), creds, "tok-123", "order-9")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if gotPath != "/charges" {
		t.Fatalf("path: %q", gotPath)
	}
	if gotUser != "pub" || gotPass != "priv" {
		t.Fatalf("basic auth: %q/%q", gotUser, gotPass)
	}
	if gotBody["checkout_token"] != "tok-123" || gotBody["order_id"] != "order-9" {
		t.Fatalf("body: %+v", gotBody)
	}
	if result.ID != "TX-1" || !result.AmountEquals(1000) {
		t.Fatalf("result: %+v", result)
	}
}

func TestSandboxFlagSelectsBaseURL(t *testing.T) {
	liveHits, sandboxHits := 0, 0
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		liveHits++
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "live"})
	}))
	defer live.Close()
	sandbox := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sandboxHits++
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sandbox"})
	}))
	defer sandbox.Close()

	client := newTestClient(live.URL, sandbox.URL, "")

	result, err := client.ReadCharge(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s", Sandbox: true}, "TX-1")
	if err != nil {
		t.Fatalf("sandbox read: %v", err)
	}
	if result.ID != "sandbox" || sandboxHits != 1 || liveHits != 0 {
		t.Fatalf("sandbox routing failed: %+v live=%d sandbox=%d", result, liveHits, sandboxHits)
	}

	result, err = client.ReadCharge(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s"}, "TX-1")
	if err != nil {
		t.Fatalf("live read: %v", err)
	}
	if result.ID != "live" || liveHits != 1 {
		t.Fatalf("live routing failed: %+v", result)
	}
}

func TestCaptureAlreadyCaptured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges/TX-2/capture" {
			t.Errorf("path: %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"type":    "already_captured",
			"message": "Charge was already captured.",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL, "")
	result, err := client.Capture(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s"}, "TX-2", "order-2", 500)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if result.Type != "already_captured" {
		t.Fatalf("result: %+v", result)
	}
}

func TestReadChargeXMLErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`<error><code>unauthorized</code><message>Invalid API key.</message></error>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL, "")
	result, err := client.ReadCharge(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s"}, "TX-3")
	if err != nil {
		t.Fatalf("read charge: %v", err)
	}
	if result.Code != "unauthorized" || result.Message != "Invalid API key." {
		t.Fatalf("xml error not normalized: %+v", result)
	}
}

func TestVoidPartialAmount(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges/TX-4/void" {
			t.Errorf("path: %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "void-1",
			"type":    "void",
			"created": "2024-03-01T10:00:00Z",
			"amount":  300,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL, "")
	amount := int64(300)
	result, err := client.Void(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s"}, "TX-4", &amount)
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if gotBody["amount"] != float64(300) {
		t.Fatalf("amount not sent: %+v", gotBody)
	}
	if result.ID != "void-1" || result.Type != "void" {
		t.Fatalf("result: %+v", result)
	}
}

func TestVoidFullOmitsAmount(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "void-2", "type": "void"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL, "")
	if _, err := client.Void(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s"}, "TX-5", nil); err != nil {
		t.Fatalf("void: %v", err)
	}
	if _, present := gotBody["amount"]; present {
		t.Fatalf("full void must not send an amount: %+v", gotBody)
	}
}

func TestCredentialValidation(t *testing.T) {
	client := newTestClient("http://unused.invalid", "http://unused.invalid", "")
	if _, err := client.ReadCharge(context.Background(), Credentials{}, "TX-1"); err == nil {
		t.Fatal("expected credential error")
	}
	if _, err := client.ReadCharge(context.Background(), Credentials{PublicKey: "p", PrivateKey: "s"}, ""); err == nil {
		t.Fatal("expected charge id error")
	}
}

func TestFundingReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/funding-report/" {
			t.Errorf("path: %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret-token" {
			t.Errorf("authorization: %q", got)
		}
		_, _ = w.Write([]byte(`{
			"funding_report": {
				"meta": {"limit": 20, "offset": 0, "total_count": 2},
				"objects": [
					{"order_id": "order-1", "discount": 1.25, "net_funding_amount": 98.75},
					{"order_id": "order-2", "discount": 2.00, "net_funding_amount": 50.00}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient("", "", server.URL)
	report, err := client.FundingReport(context.Background(), "secret-token")
	if err != nil {
		t.Fatalf("funding report: %v", err)
	}
	if len(report.Objects) != 2 {
		t.Fatalf("objects: %+v", report.Objects)
	}

	record := report.FindByOrderID("order-2")
	if record == nil || !record.Discount.Equal(decimalFromString(t, "2")) {
		t.Fatalf("record lookup: %+v", record)
	}
	if report.FindByOrderID("order-404") != nil {
		t.Fatal("missing order must return nil")
	}
}

func TestFundingReportRequiresToken(t *testing.T) {
	client := newTestClient("", "", "http://unused.invalid")
	if _, err := client.FundingReport(context.Background(), " "); err == nil {
		t.Fatal("expected token error")
	}
}
