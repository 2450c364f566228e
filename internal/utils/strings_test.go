package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"only spaces", "   ", nil},
		{"comma only", ",", nil},
		{"single value", "trade_placed", []string{"trade_placed"}},
		{"spacing trimmed", " trade_placed ,  kyc_triggered ", []string{"trade_placed", "kyc_triggered"}},
		{"empties dropped", ",,signup_completed,,", []string{"signup_completed"}},
		{"internal spaces kept", "bank account, upi id", []string{"bank account", "upi id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestSplitUpper(t *testing.T) {
	assert.Equal(t, []string{"TRADE_PLACED", "KYC_TRIGGERED"}, SplitUpper("trade_placed, Kyc_Triggered"))
	assert.Nil(t, SplitUpper(" , "))
}
