package jobs

import (
	"strings"
	"testing"

	"github.com/WaffleHacks/wafflemaker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretValue_Alphanumeric(t *testing.T) {
	r := newStreamCipherRand()
	value, err := generateSecretValue(r, service.FormatAlphanumeric, 16)
	require.NoError(t, err)
	assert.Len(t, value, 16)
	for _, c := range value {
		assert.Contains(t, alphanumericAlphabet, string(c))
	}
}

func TestGenerateSecretValue_Hex(t *testing.T) {
	r := newStreamCipherRand()
	value, err := generateSecretValue(r, service.FormatHex, 32)
	require.NoError(t, err)
	assert.Len(t, value, 32)
}

func TestGenerateSecretValue_Base64TruncatesToLength(t *testing.T) {
	r := newStreamCipherRand()
	value, err := generateSecretValue(r, service.FormatBase64, 10)
	require.NoError(t, err)
	assert.Len(t, value, 10)
}

func TestGenerateSecretValue_UnknownFormat(t *testing.T) {
	r := newStreamCipherRand()
	_, err := generateSecretValue(r, service.Format("unknown"), 10)
	assert.Error(t, err)
}

func TestRandomSuffix_IsLowercaseEightChars(t *testing.T) {
	suffix := randomSuffix()
	assert.Len(t, suffix, 8)
	assert.Equal(t, suffix, strings.ToLower(suffix))
}
