package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCurrency_AmountsEqual(t *testing.T) {
	eur := &Currency{Code: "EUR", Digits: 2}

	tests := []struct {
		name string
		a, b decimal.Decimal
		want bool
	}{
		{
			name: "identical",
			a:    decimal.NewFromFloat(100.00),
			b:    decimal.NewFromInt(100),
			want: true,
		},
		{
			name: "equal at two digits",
			a:    decimal.NewFromFloat(100.004),
			b:    decimal.NewFromFloat(100.001),
			want: true,
		},
		{
			name: "different at two digits",
			a:    decimal.NewFromFloat(100.01),
			b:    decimal.NewFromFloat(100.02),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eur.AmountsEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCurrency_Format(t *testing.T) {
	jpy := &Currency{Code: "JPY", Digits: 0}
	if got := jpy.Format(decimal.NewFromFloat(1234.4)); got != "1234" {
		t.Errorf("expected 1234, got %q", got)
	}

	eur := &Currency{Code: "EUR", Digits: 2}
	if got := eur.Format(decimal.NewFromInt(5)); got != "5.00" {
		t.Errorf("expected 5.00, got %q", got)
	}
}
