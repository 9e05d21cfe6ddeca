package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatVND(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"20000000", "20,000,000"},
		{"125000.4", "125,000"},
		{"125000.5", "125,001"},
		{"-2500000", "-2,500,000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatVND(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestMaxZero(t *testing.T) {
	assert.True(t, MaxZero(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, MaxZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}
