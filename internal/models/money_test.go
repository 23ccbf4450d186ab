package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyMinorUnitRoundTrip(t *testing.T) {
	cases := []struct {
		amount string
		minor  int64
	}{
		{"0.00", 0},
		{"0.01", 1},
		{"10.00", 1000},
		{"10.50", 1050},
		{"999999.99", 99999999},
		{"3.10", 310},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.amount)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.amount, err)
		}
		m := NewMoneyFromDecimal(d)
		if got := m.ToMinorUnits(); got != tc.minor {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", tc.amount, got, tc.minor)
		}
		back := NewMoneyFromMinorUnits(tc.minor)
		if back.String() != tc.amount {
			t.Fatalf("round trip of %s gave %s", tc.amount, back.String())
		}
	}
}

func TestMoneyToMinorUnitsRounds(t *testing.T) {
	d, _ := decimal.NewFromString("10.005")
	m := Money{Decimal: d}
	if got := m.ToMinorUnits(); got != 1001 {
		t.Fatalf("expected rounding to nearest cent, got %d", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoneyFromMinorUnits(1050)
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != "10.50" {
		t.Fatalf("expected numeric 10.50, got %s", b)
	}

	var fromNumber Money
	if err := json.Unmarshal([]byte("10.5"), &fromNumber); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if fromNumber.ToMinorUnits() != 1050 {
		t.Fatalf("unexpected value from number: %s", fromNumber.String())
	}

	var fromString Money
	if err := json.Unmarshal([]byte(`"10.50"`), &fromString); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if fromString.ToMinorUnits() != 1050 {
		t.Fatalf("unexpected value from string: %s", fromString.String())
	}
}
