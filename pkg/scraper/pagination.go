package scraper

import (
	"context"
	"time"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/config"
)

// ScrollOptions controls the lazy-load scroll loop
type ScrollOptions struct {
	Step        int
	Interval    time.Duration
	MaxSteps    int
	MaxDuration time.Duration
}

// DefaultScrollOptions returns 100px steps every 100ms, capped at 500 steps or a minute
func DefaultScrollOptions() ScrollOptions {
	return ScrollOptions{
		Step:        100,
		Interval:    100 * time.Millisecond,
		MaxSteps:    500,
		MaxDuration: 60 * time.Second,
	}
}

func scrollOptionsFrom(cfg config.ScrapeConfig) ScrollOptions {
	return ScrollOptions{
		Step:        cfg.ScrollStep,
		Interval:    cfg.ScrollInterval,
		MaxSteps:    cfg.ScrollMaxSteps,
		MaxDuration: cfg.ScrollMaxDuration,
	}
}

func (o ScrollOptions) withDefaults() ScrollOptions {
	d := DefaultScrollOptions()
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.Interval < 0 {
		o.Interval = 0
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = d.MaxDuration
	}
	return o
}

// ScrollReport describes where a scroll loop stopped
type ScrollReport struct {
	Steps      int `json:"steps"`
	Distance   int `json:"distance"`
	LastHeight int `json:"last_height"`
	// Stable is true when the accumulated distance reached the document height,
	// false when a cap ended the loop first
	Stable bool `json:"stable"`
}

// ScrollToEnd scrolls page in fixed steps until the accumulated distance reaches
// the document's scroll height. The height is re-read every cycle, so content that
// loads while scrolling extends the loop until MaxSteps or MaxDuration is hit.
func ScrollToEnd(ctx context.Context, page browser.Scroller, opts ScrollOptions) (ScrollReport, error) {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.MaxDuration)

	var report ScrollReport
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if report.Steps >= opts.MaxSteps || !time.Now().Before(deadline) {
			return report, nil
		}

		height, err := page.ScrollHeight(ctx)
		if err != nil {
			return report, err
		}
		report.LastHeight = height

		if err := page.ScrollBy(ctx, opts.Step); err != nil {
			return report, err
		}
		report.Steps++
		report.Distance += opts.Step

		if report.Distance >= height {
			report.Stable = true
			return report, nil
		}

		if err := sleep(ctx, opts.Interval); err != nil {
			return report, err
		}
	}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
