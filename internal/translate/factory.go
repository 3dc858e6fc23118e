// factory.go - provider-keyed Backend construction (C7).

package translate

import (
	"fmt"

	"github.com/toonslate/toonslate-backend/configs"
	"github.com/toonslate/toonslate-backend/internal/ratelimit"
)

// New builds a Backend for cfg.TranslationProvider.
func New(cfg configs.Config, limiter *ratelimit.Limiter) (Backend, error) {
	switch cfg.TranslationProvider {
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("translate: GEMINI_API_KEY is required for provider %q", cfg.TranslationProvider)
		}
		return NewGeminiBackend(cfg.GeminiAPIKey, cfg.GeminiModel, limiter), nil
	default:
		return nil, fmt.Errorf("translate: unknown provider %q", cfg.TranslationProvider)
	}
}
