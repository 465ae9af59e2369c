package crypto

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateNumericCodeFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}
}

func TestGenerateNumericCodeKeepsLeadingZeros(t *testing.T) {
	// an all-zero source yields the smallest value in range
	code, err := GenerateNumericCodeFrom(bytes.NewReader(make([]byte, 64)), 6)
	require.NoError(t, err)
	require.Equal(t, "000000", code)
}

func TestGenerateNumericCodeRejectsBadLength(t *testing.T) {
	_, err := GenerateNumericCode(0)
	require.ErrorIs(t, err, ErrInvalidDigits)

	_, err = GenerateNumericCode(MaxCodeDigits + 1)
	require.ErrorIs(t, err, ErrInvalidDigits)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateNumericCodePropagatesReaderError(t *testing.T) {
	_, err := GenerateNumericCodeFrom(failingReader{}, 6)
	require.Error(t, err)
	require.Contains(t, err.Error(), "entropy exhausted")
}

func TestGenerateNumericCodeVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 1)
}
