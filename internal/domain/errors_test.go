package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	all := []error{ErrInvalidState, ErrMissingToken, ErrInvalidArgument, ErrQuoteExpired, ErrNotAuthenticated}

	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestSentinelErrors_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("sell: %w", ErrQuoteExpired)

	assert.ErrorIs(t, err, ErrQuoteExpired)
	assert.Equal(t, "sell: QUOTE_EXPIRED", err.Error())
}
