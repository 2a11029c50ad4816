package llm

import (
	"fmt"
	"os"

	"github.com/ternarybob/sitemark/internal/interfaces"
)

// ResolveAPIKey resolves a provider API key by precedence: explicit override
// first, then environment variables in order, then the configured value
// (which the config layer has already merged from project and user config
// files). Returns ErrMissingAPIKey when no source yields a key.
func ResolveAPIKey(explicit string, envNames []string, configured string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, name := range envNames {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	if configured != "" {
		return configured, nil
	}
	return "", fmt.Errorf("%w (checked flag, %v, config files)", interfaces.ErrMissingAPIKey, envNames)
}
