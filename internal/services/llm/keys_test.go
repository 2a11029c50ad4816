package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/sitemark/internal/interfaces"
)

func TestResolveAPIKey_ExplicitWins(t *testing.T) {
	t.Setenv("SITEMARK_TEST_KEY", "from-env")

	key, err := ResolveAPIKey("from-flag", []string{"SITEMARK_TEST_KEY"}, "from-config")

	require.NoError(t, err)
	assert.Equal(t, "from-flag", key)
}

func TestResolveAPIKey_EnvOrder(t *testing.T) {
	t.Setenv("SITEMARK_TEST_KEY_A", "")
	t.Setenv("SITEMARK_TEST_KEY_B", "from-b")

	key, err := ResolveAPIKey("", []string{"SITEMARK_TEST_KEY_A", "SITEMARK_TEST_KEY_B"}, "")

	require.NoError(t, err)
	assert.Equal(t, "from-b", key)
}

func TestResolveAPIKey_ConfigFallback(t *testing.T) {
	key, err := ResolveAPIKey("", []string{"SITEMARK_TEST_KEY_UNSET"}, "from-config")

	require.NoError(t, err)
	assert.Equal(t, "from-config", key)
}

func TestResolveAPIKey_Missing(t *testing.T) {
	_, err := ResolveAPIKey("", []string{"SITEMARK_TEST_KEY_UNSET"}, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrMissingAPIKey)
}
