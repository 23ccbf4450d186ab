package lender

import (
	"testing"
)

func TestDecodeChargeResultJSON(t *testing.T) {
	body := []byte(`{
		"id": "TX-100",
		"type": "auth",
		"status": "authorized",
		"amount": 10050,
		"currency": "USD",
		"fee": 250,
		"created": "2024-03-01T10:00:00Z",
		"events": [{"type": "auth"}]
	}`)

	result, err := decodeChargeResult(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ID != "TX-100" || result.Status != "authorized" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Amount == nil || *result.Amount != 10050 {
		t.Fatalf("amount not parsed: %+v", result.Amount)
	}
	if result.Fee == nil || *result.Fee != 250 {
		t.Fatalf("fee not parsed: %+v", result.Fee)
	}
	if len(result.Events) == 0 {
		t.Fatal("events should be retained as raw JSON")
	}
	if !result.AmountEquals(10050) {
		t.Fatal("AmountEquals should match the echoed amount")
	}
	if result.AmountEquals(9999) {
		t.Fatal("AmountEquals must not match a different amount")
	}
}

func TestDecodeChargeResultNestedError(t *testing.T) {
	body := []byte(`{
		"status_code": "403",
		"code": "checkout-token-used",
		"charge_id": "TX-7",
		"error": {"code": "token-used", "message": "Token already consumed."}
	}`)

	result, err := decodeChargeResult(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Err == nil || result.Err.Code != "token-used" {
		t.Fatalf("nested error lost: %+v", result.Err)
	}
	if result.ChargeReference() != "TX-7" {
		t.Fatalf("charge reference: %q", result.ChargeReference())
	}
}

func TestDecodeChargeResultValidationFields(t *testing.T) {
	body := []byte(`{
		"status_code": "400",
		"message": "Invalid request",
		"fields": {"amount": ["must be positive"]}
	}`)

	result, err := decodeChargeResult(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Fields != `{"amount":["must be positive"]}` {
		t.Fatalf("object fields lost: %q", result.Fields)
	}
	if got := result.ResponseMessage(); got != `Invalid request: {"amount":["must be positive"]}` {
		t.Fatalf("validation detail dropped from message: %q", got)
	}

	plain, err := decodeChargeResult([]byte(`{"message": "Invalid request", "fields": "shipping.address"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plain.Fields != "shipping.address" {
		t.Fatalf("string fields should pass through: %q", plain.Fields)
	}
}

func TestDecodeChargeResultXMLFallback(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
		<response>
			<type>invalid_request</type>
			<code>unauthorized</code>
			<message>Invalid API key.</message>
			<status_code>401</status_code>
		</response>`)

	result, err := decodeChargeResult(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Code != "unauthorized" || result.Message != "Invalid API key." {
		t.Fatalf("xml fields lost: %+v", result)
	}
	if result.StatusCode != "401" {
		t.Fatalf("status_code: %q", result.StatusCode)
	}
}

func TestDecodeChargeResultGarbage(t *testing.T) {
	if _, err := decodeChargeResult([]byte("not json, not xml")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeChargeResultEmptyBody(t *testing.T) {
	result, err := decodeChargeResult(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ID != "" || result.Amount != nil {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestResponseCodePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		result ChargeResult
		want   string
	}{
		{"status wins", ChargeResult{Status: "authorized", StatusCode: "200", Err: &ErrorDetail{Code: "x"}}, "authorized"},
		{"status_code next", ChargeResult{StatusCode: "403", Err: &ErrorDetail{Code: "x"}}, "403"},
		{"error code last", ChargeResult{Err: &ErrorDetail{Code: "token-used"}}, "token-used"},
		{"all empty", ChargeResult{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.ResponseCode(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResponseMessagePrecedence(t *testing.T) {
	withEvents := ChargeResult{
		Events:  []byte(`[{"type":"auth"}]`),
		Message: "plain",
		Err:     &ErrorDetail{Message: "error"},
	}
	if got := withEvents.ResponseMessage(); got != `[{"type":"auth"}]` {
		t.Fatalf("events should win: %q", got)
	}

	withMessage := ChargeResult{Message: "plain", Err: &ErrorDetail{Message: "error"}}
	if got := withMessage.ResponseMessage(); got != "plain" {
		t.Fatalf("message should win: %q", got)
	}

	withError := ChargeResult{Err: &ErrorDetail{Message: "error"}}
	if got := withError.ResponseMessage(); got != "error" {
		t.Fatalf("error message should be used: %q", got)
	}

	withFields := ChargeResult{Message: "validation failed", Fields: "shipping.address"}
	if got := withFields.ResponseMessage(); got != "validation failed: shipping.address" {
		t.Fatalf("fields should be appended: %q", got)
	}
}

func TestTypeOrErrCode(t *testing.T) {
	withType := ChargeResult{Type: "void", Err: &ErrorDetail{Code: "x"}}
	if got := withType.TypeOrErrCode(); got != "void" {
		t.Fatalf("type should win: %q", got)
	}
	withError := ChargeResult{Err: &ErrorDetail{Code: "not-voidable"}}
	if got := withError.TypeOrErrCode(); got != "not-voidable" {
		t.Fatalf("error code should be used: %q", got)
	}
}

func TestCreatedOrErrMessage(t *testing.T) {
	success := ChargeResult{Created: "2024-03-01T10:00:00Z"}
	if got := success.CreatedOrErrMessage(); got != "2024-03-01T10:00:00Z" {
		t.Fatalf("created should win: %q", got)
	}
	failure := ChargeResult{Err: &ErrorDetail{Message: "charge not voidable"}}
	if got := failure.CreatedOrErrMessage(); got != "charge not voidable" {
		t.Fatalf("error message should be used: %q", got)
	}
}
