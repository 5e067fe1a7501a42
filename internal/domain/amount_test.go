package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"minimum allowed", "0.01", false},
		{"below minimum", "0.00", true},
		{"zero", "0", true},
		{"negative", "-10.00", true},
		{"maximum allowed", "999999999999.99", false},
		{"above maximum", "1000000000000.00", true},
		{"typical amount", "100.00", false},
		{"integer amount", "100", false},
		{"one decimal place", "99.5", false},
		{"three decimal places", "1.005", true},
		{"not a number", "abc", true},
		{"empty", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(tc.amount)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	require.False(t, StatusCreated.IsTerminal())
	require.False(t, Status("").IsTerminal())
	require.True(t, StatusPaid.IsTerminal())
	require.True(t, StatusDeclined.IsTerminal())
	require.True(t, StatusError.IsTerminal())
	require.True(t, StatusCancelled.IsTerminal())

	// Provider-introduced statuses pass through and still end the lifecycle.
	require.True(t, Status("EXPIRED").IsTerminal())
	require.False(t, Status("EXPIRED").IsCompletion())
}
