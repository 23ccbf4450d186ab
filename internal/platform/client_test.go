package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/constants"
	"github.com/paylater-gateway/internal/models"
)

func newTestPlatformClient(baseURL string) *Client {
	return NewClient(config.PlatformConfig{
		TransactionBaseURL: baseURL,
		TimeoutMS:          2000,
	})
}

func TestListCancellationActions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/TX-1/cancellations" {
			t.Errorf("path: %q", r.URL.Path)
		}
		if r.Header.Get(constants.HeaderAppKey) != "key" || r.Header.Get(constants.HeaderAppToken) != "token" {
			t.Errorf("auth headers missing")
		}
		_, _ = w.Write([]byte(`{
			"actions": [
				{"id": "act-1", "date": "2024-03-01", "value": 300},
				{"id": "act-2", "date": "2024-03-02", "value": 200}
			]
		}`))
	}))
	defer server.Close()

	client := newTestPlatformClient(server.URL)
	actions, err := client.ListCancellationActions(context.Background(), Credentials{AppKey: "key", AppToken: "token"}, "TX-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actions) != 2 || actions[0].Value != 300 || actions[1].Value != 200 {
		t.Fatalf("actions: %+v", actions)
	}
}

func TestListCancellationActionsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"actions": []}`))
	}))
	defer server.Close()

	client := newTestPlatformClient(server.URL)
	actions, err := client.ListCancellationActions(context.Background(), Credentials{AppKey: "k", AppToken: "t"}, "TX-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected no actions, got %+v", actions)
	}
}

func TestListCancellationActionsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestPlatformClient(server.URL)
	if _, err := client.ListCancellationActions(context.Background(), Credentials{AppKey: "k", AppToken: "t"}, "TX-3"); err == nil {
		t.Fatal("expected error on http 500")
	}
}

func TestListCancellationActionsValidation(t *testing.T) {
	client := newTestPlatformClient("http://unused.invalid")
	if _, err := client.ListCancellationActions(context.Background(), Credentials{}, "TX-1"); err == nil {
		t.Fatal("expected credential error")
	}
	if _, err := client.ListCancellationActions(context.Background(), Credentials{AppKey: "k", AppToken: "t"}, " "); err == nil {
		t.Fatal("expected transaction id error")
	}
}

func TestAttachNote(t *testing.T) {
	var gotBody []map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/TX-4/additional-data" {
			t.Errorf("path: %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method: %q", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestPlatformClient(server.URL)
	err := client.AttachNote(context.Background(), Credentials{AppKey: "k", AppToken: "t"}, "TX-4", `{"id":"void-1"}`)
	if err != nil {
		t.Fatalf("attach note: %v", err)
	}
	if len(gotBody) != 1 || gotBody[0]["name"] != "voidResponse" || gotBody[0]["value"] != `{"id":"void-1"}` {
		t.Fatalf("body: %+v", gotBody)
	}
}

func TestPostCallbackRewritesScheme(t *testing.T) {
	var gotProto string
	var gotResponse models.PaymentResponse
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProto = r.Header.Get("X-Forwarded-Proto")
		_ = json.NewDecoder(r.Body).Decode(&gotResponse)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// The callback URL claims https; the client must downgrade to http and
	// flag the original scheme.
	callbackURL := "https" + server.URL[len("http"):]

	client := newTestPlatformClient("")
	err := client.PostCallback(context.Background(), callbackURL, &models.PaymentResponse{
		PaymentID: "pay-1",
		Status:    "approved",
		TID:       "TX-5",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if gotProto != "https" {
		t.Fatalf("forwarded proto: %q", gotProto)
	}
	if gotResponse.PaymentID != "pay-1" || gotResponse.Status != "approved" {
		t.Fatalf("payload: %+v", gotResponse)
	}
}

func TestPostCallbackFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestPlatformClient("")
	err := client.PostCallback(context.Background(), server.URL, &models.PaymentResponse{PaymentID: "pay-2"})
	if err == nil {
		t.Fatal("expected error on http 502")
	}
}
