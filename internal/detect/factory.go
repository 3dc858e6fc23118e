// factory.go - provider-keyed Backend construction.

package detect

import (
	"fmt"

	"github.com/toonslate/toonslate-backend/configs"
	"github.com/toonslate/toonslate-backend/internal/ratelimit"
)

// New builds a Backend for cfg.DetectionProvider. Unknown providers are a
// startup-time configuration error, not a runtime one.
func New(cfg configs.Config, limiter *ratelimit.Limiter) (Backend, error) {
	switch cfg.DetectionProvider {
	case "hf_space", "":
		if cfg.DetectionEndpoint == "" {
			return nil, fmt.Errorf("detect: DETECTION_ENDPOINT is required for provider %q", cfg.DetectionProvider)
		}
		return NewHFSpaceBackend(cfg.DetectionEndpoint, cfg.DetectionTimeout, cfg.DetectionMaxRetries, limiter), nil
	default:
		return nil, fmt.Errorf("detect: unknown provider %q", cfg.DetectionProvider)
	}
}
