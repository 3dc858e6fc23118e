// factory.go - provider-keyed RoutedInpainter construction.

package inpaint

import (
	"fmt"

	"github.com/toonslate/toonslate-backend/configs"
)

// New builds a RoutedInpainter for cfg.InpaintingProvider. "routed" is the
// only provider shipped today; the switch exists so a future provider slots
// in the same way detect.New and translate.New do.
func New(cfg configs.Config) (*RoutedInpainter, error) {
	switch cfg.InpaintingProvider {
	case "routed", "":
		if cfg.IOPaintSpaceURL == "" {
			return nil, fmt.Errorf("inpaint: IOPAINT_SPACE_URL is required for provider %q", cfg.InpaintingProvider)
		}
		cleaner := NewBubbleCleaner(cfg.BubbleFillPaddingRatio)
		restorer := NewBackgroundRestorer(cfg.IOPaintSpaceURL, cfg.IOPaintTimeout)
		return NewRoutedInpainter(cleaner, restorer), nil
	default:
		return nil, fmt.Errorf("inpaint: unknown provider %q", cfg.InpaintingProvider)
	}
}
