package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		wantErr bool
	}{
		{"1", "1", true, false},
		{"true mixedcase", "tRuE", true, false},
		{"yes uppercase", "YES", true, false},
		{"0", "0", false, false},
		{"false titlecase", "False", false, false},
		{"no lowercase", "no", false, false},
		{"empty", "", false, false},
		{"true with tabs and newlines", "\ttrue\n", true, false},
		{"on", "on", false, true},
		{"t", "t", false, true},
		{"2", "2", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBool(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidBool)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFailsafeParseBoolEnv(t *testing.T) {
	const name = "KILN_TEST_FAILSAFE_BOOL"

	t.Setenv(name, "")
	assert.True(t, FailsafeParseBoolEnv(name, true))

	t.Setenv(name, "garbage")
	assert.False(t, FailsafeParseBoolEnv(name, false))
	assert.True(t, FailsafeParseBoolEnv(name, true))

	t.Setenv(name, "yes")
	assert.True(t, FailsafeParseBoolEnv(name, false))

	t.Setenv(name, "0")
	assert.False(t, FailsafeParseBoolEnv(name, true))
}
