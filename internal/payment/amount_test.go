package payment

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name   string
		budget string
		want   float64
		ok     bool
	}{
		{name: "brazilian with thousands", budget: "R$ 2.490,00", want: 2490, ok: true},
		{name: "brazilian without cents", budget: "R$ 1.990", want: 1990, ok: true},
		{name: "decimal comma", budget: "150,50", want: 150.5, ok: true},
		{name: "plain number", budget: "2000", want: 2000, ok: true},
		{name: "decimal point", budget: "99.9", want: 99.9, ok: true},
		{name: "millions", budget: "R$ 1.234.567,89", want: 1234567.89, ok: true},
		{name: "range is not a number", budget: "R$ 2.200 - 2.900", ok: false},
		{name: "no digits", budget: "a combinar", ok: false},
		{name: "empty", budget: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBudget(tt.budget)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}

func TestResolveAmount(t *testing.T) {
	got, ok := ResolveAmount(nil, ptr("R$ 2.490,00"))
	assert.True(t, ok)
	assert.InDelta(t, 2490.00, got, 0.0001)

	got, ok = ResolveAmount(ptr(100.0), ptr("R$ 2.490,00"))
	assert.True(t, ok)
	assert.Equal(t, 100.0, got)

	_, ok = ResolveAmount(nil, nil)
	assert.False(t, ok)

	_, ok = ResolveAmount(ptr(0.0), ptr("-10"))
	assert.False(t, ok)
}

func TestToCents(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
		ok     bool
	}{
		{name: "whole amount", amount: 2490, want: 249000, ok: true},
		{name: "cents", amount: 19.99, want: 1999, ok: true},
		{name: "ten cents", amount: 0.1, want: 10, ok: true},
		{name: "one cent", amount: 0.01, want: 1, ok: true},
		{name: "half cent rounds up", amount: 0.005, want: 1, ok: true},
		{name: "large amount", amount: 1e13, want: 1e15, ok: true},
		{name: "sub cent rounds to zero", amount: 0.001, ok: false},
		{name: "zero", amount: 0, ok: false},
		{name: "negative", amount: -5, ok: false},
		{name: "overflows int64", amount: 1e18, ok: false},
		{name: "above bound", amount: float64(MaxAmountCents), ok: false},
		{name: "infinity", amount: math.Inf(1), ok: false},
		{name: "nan", amount: math.NaN(), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToCents(tt.amount)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewReceiptCode(t *testing.T) {
	now := time.UnixMilli(1765000000000)

	a := NewReceiptCode(now)
	b := NewReceiptCode(now)

	assert.Regexp(t, regexp.MustCompile(`^RES-1765000000000-[0-9A-F]{6}$`), a)
	assert.NotEqual(t, a, b)
	assert.Less(t, NewReceiptCode(now), NewReceiptCode(now.Add(time.Second)))
}
