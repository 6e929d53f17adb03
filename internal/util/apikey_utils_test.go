package util

import (
	"strings"
	"testing"

	"github.com/carvdstudio/carvd-licensing/internal/domain/apikey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	fullKey, prefix, keyHash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fullKey, "cv_"))
	// Prefix generation strips URL-unsafe characters, so it can come up
	// a character or two short of the target length.
	assert.NotEmpty(t, prefix)
	assert.LessOrEqual(t, len(prefix), apikey.APIKeyPrefixLength)
	assert.Contains(t, fullKey, prefix)
	assert.Len(t, keyHash, 64, "hash must be hex-encoded SHA-256")

	assert.Equal(t, keyHash, HashAPIKey(fullKey))
}

func TestGenerateAPIKeyIsUnique(t *testing.T) {
	first, _, _, err := GenerateAPIKey()
	require.NoError(t, err)
	second, _, _, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
