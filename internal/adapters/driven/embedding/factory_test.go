package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

func TestNew_DisabledProvider(t *testing.T) {
	svc, err := New(Settings{})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Settings{Provider: "mystery"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNew_Ollama(t *testing.T) {
	svc, err := New(Settings{Provider: "ollama", Model: "all-minilm"})
	require.NoError(t, err)
	require.NotNil(t, svc)
	defer svc.Close()

	assert.Equal(t, "all-minilm", svc.ModelName())
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	_, err := New(Settings{Provider: "openai"})
	require.Error(t, err)
}
