package lender

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ErrorDetail is the nested error object some lender failure payloads carry.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChargeResult is the normalized shape of every lender charge endpoint
// response. The lender mixes success and error payloads freely, so every
// field is optional; pointer fields distinguish absent from zero.
type ChargeResult struct {
	ID          string
	Type        string
	Created     string
	Status      string
	StatusCode  string
	Code        string // top-level error code, mirrored from the wire; no outcome chain reads it
	Message     string
	ChargeID    string
	ReferenceID string
	CheckoutID  string
	Currency    string
	Amount      *int64
	Fee         *int64
	FeeRefunded *int64
	Events      json.RawMessage
	Fields      string
	Err         *ErrorDetail
}

// decodeChargeResult parses a lender response body. Success payloads are
// JSON; some error payloads arrive as XML, which is flattened into the same
// field set.
func decodeChargeResult(body []byte) (*ChargeResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &ChargeResult{}, nil
	}

	raw := map[string]interface{}{}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err == nil {
		return chargeResultFromMap(raw), nil
	}

	flat, err := flattenXML(trimmed)
	if err != nil {
		return nil, fmt.Errorf("lender response is neither JSON nor XML: %w", err)
	}
	return chargeResultFromMap(flat), nil
}

func chargeResultFromMap(raw map[string]interface{}) *ChargeResult {
	result := &ChargeResult{
		ID:          readString(raw, "id"),
		Type:        readString(raw, "type"),
		Created:     readString(raw, "created"),
		Status:      readString(raw, "status"),
		StatusCode:  readString(raw, "status_code"),
		Code:        readString(raw, "code"),
		Message:     readString(raw, "message"),
		ChargeID:    readString(raw, "charge_id"),
		ReferenceID: readString(raw, "reference_id"),
		CheckoutID:  readString(raw, "checkout_id"),
		Currency:    readString(raw, "currency"),
		Amount:      readInt64(raw, "amount"),
		Fee:         readInt64(raw, "fee"),
		FeeRefunded: readInt64(raw, "fee_refunded"),
	}

	// Validation errors carry fields as an object or array keyed by field
	// name; plain strings pass through, everything else is re-serialized.
	if fields, ok := raw["fields"]; ok && fields != nil {
		if text, isString := fields.(string); isString {
			result.Fields = text
		} else if encoded, err := json.Marshal(fields); err == nil {
			result.Fields = string(encoded)
		}
	}

	if events, ok := raw["events"]; ok && events != nil {
		if encoded, err := json.Marshal(events); err == nil {
			result.Events = encoded
		}
	}

	if nested, ok := raw["error"].(map[string]interface{}); ok {
		result.Err = &ErrorDetail{
			Code:    readString(nested, "code"),
			Message: readString(nested, "message"),
		}
	}

	return result
}

// flattenXML collects leaf element text keyed by local element name, so XML
// error bodies feed the same mapping as JSON ones.
func flattenXML(body []byte) (map[string]interface{}, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	flat := map[string]interface{}{}
	var current string
	sawElement := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			sawElement = true
			current = strings.ToLower(t.Name.Local)
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if current != "" && text != "" {
				flat[current] = text
			}
		case xml.EndElement:
			current = ""
		}
	}

	if !sawElement {
		return nil, fmt.Errorf("no XML elements found")
	}
	return flat, nil
}

func readString(raw map[string]interface{}, key string) string {
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}

func readInt64(raw map[string]interface{}, key string) *int64 {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil
	}
	switch v := value.(type) {
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return nil
		}
		return &parsed
	case string:
		var parsed int64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &parsed); err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

// AmountEquals reports whether the lender echoed exactly the expected amount
// in minor units.
func (r *ChargeResult) AmountEquals(expectedMinorUnits int64) bool {
	return r != nil && r.Amount != nil && *r.Amount == expectedMinorUnits
}

// ChargeReference returns the charge identifier an ambiguous authorize
// failure points at, preferring charge_id over reference_id.
func (r *ChargeResult) ChargeReference() string {
	if r == nil {
		return ""
	}
	if r.ChargeID != "" {
		return r.ChargeID
	}
	return r.ReferenceID
}

// ErrCode returns the nested error code when present.
func (r *ChargeResult) ErrCode() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Code
}

// ErrMessage returns the nested error message when present.
func (r *ChargeResult) ErrMessage() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// ResponseCode picks the authorize response code: status, then status_code,
// then the nested error code.
func (r *ChargeResult) ResponseCode() string {
	if r == nil {
		return ""
	}
	if r.Status != "" {
		return r.Status
	}
	if r.StatusCode != "" {
		return r.StatusCode
	}
	return r.ErrCode()
}

// ResponseMessage picks the authorize response message: serialized events,
// then message, then the nested error message; validation field names are
// appended when present.
func (r *ChargeResult) ResponseMessage() string {
	if r == nil {
		return ""
	}
	message := ""
	switch {
	case len(r.Events) > 0:
		message = string(r.Events)
	case r.Message != "":
		message = r.Message
	default:
		message = r.ErrMessage()
	}
	if r.Fields != "" {
		message = fmt.Sprintf("%s: %s", message, r.Fields)
	}
	return message
}

// TypeOrErrCode picks the outcome code for refunds and voids: the result
// type, falling back to the nested error code.
func (r *ChargeResult) TypeOrErrCode() string {
	if r == nil {
		return ""
	}
	if r.Type != "" {
		return r.Type
	}
	return r.ErrCode()
}

// CreatedOrErrMessage picks the void outcome message: the created timestamp
// on success, the nested error message on failure.
func (r *ChargeResult) CreatedOrErrMessage() string {
	if r == nil {
		return ""
	}
	if r.Created != "" {
		return r.Created
	}
	return r.ErrMessage()
}
