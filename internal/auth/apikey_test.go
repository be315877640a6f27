package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, APIKeyPrefix))
	assert.Len(t, key, len(APIKeyPrefix)+64)
	assert.NoError(t, ValidateAPIKeyFormat(key))

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestHashAPIKey(t *testing.T) {
	key := APIKeyPrefix + strings.Repeat("ab", 32)

	assert.Equal(t, HashAPIKey(key), HashAPIKey(key))
	assert.Len(t, HashAPIKey(key), 64)
	assert.NotEqual(t, HashAPIKey(key), HashAPIKey(key+"x"))
}

func TestDisplayPrefix(t *testing.T) {
	key := APIKeyPrefix + "0123456789abcdef"
	assert.Equal(t, "okd_01234567", DisplayPrefix(key))
	assert.Equal(t, "okd_", DisplayPrefix("okd_"))
}

func TestValidateAPIKeyFormat(t *testing.T) {
	assert.ErrorIs(t, ValidateAPIKeyFormat("sk_"+strings.Repeat("a", 64)), ErrAPIKeyInvalid)
	assert.ErrorIs(t, ValidateAPIKeyFormat(APIKeyPrefix+"abc"), ErrAPIKeyInvalid)
	assert.ErrorIs(t, ValidateAPIKeyFormat(APIKeyPrefix+strings.Repeat("z", 64)), ErrAPIKeyInvalid)
}
