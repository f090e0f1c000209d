package scraper

import (
	"context"
	"fmt"
	"time"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/config"
)

// PointerMove is one pointer relocation followed by a pause
type PointerMove = config.PointerMove

// DefaultPointerMoves is a short diagonal sweep with two-second pauses
func DefaultPointerMoves() []PointerMove {
	return []PointerMove{
		{X: 100, Y: 100, Pause: 2 * time.Second},
		{X: 200, Y: 200, Pause: 2 * time.Second},
		{X: 300, Y: 300, Pause: 2 * time.Second},
	}
}

// SimulateHuman replays moves on page. The first failure ends the sequence.
func SimulateHuman(ctx context.Context, page browser.Pointer, moves []PointerMove) error {
	for i, m := range moves {
		if err := page.MouseMove(ctx, m.X, m.Y); err != nil {
			return fmt.Errorf("pointer move %d: %w", i, err)
		}
		if err := sleep(ctx, m.Pause); err != nil {
			return err
		}
	}
	return nil
}
