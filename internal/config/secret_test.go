package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIToken(t *testing.T) {
	token, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	token2, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}
