// Package scraper collects engagement metrics from a public short-video profile.
//
// A run drives one browser session through a fixed sequence of states:
//
//	Launching → Navigating → Simulating → Paginating → WaitingFollowerSelector →
//	WaitingPostListSelector → ExtractingPostList → IteratingPosts → Aggregating → Closed
//
// The profile page is scrolled until its lazy-loaded listing stops growing (or a
// step/time cap is hit), the follower count and post list are read, and the first
// PostCap posts are visited one by one for likes, comments, saves, shares, the
// description and the top-level comments.
//
// Usage:
//
//	antiBot := browser.NewAntiBot(cfg.Browser, cfg.Captcha)
//	launcher := browser.NewRodLauncher(cfg.Browser, antiBot, log)
//	s := scraper.New(launcher, antiBot, cfg, log)
//	result := s.ScrapeProfile(ctx, "@someone")
//	totals := result.Totals()
//
// Failures never surface as errors from ScrapeProfile. The result's Status names the
// state the run stopped in, and a post whose detail pass failed keeps its listing
// fields with ExtractionError set. Every counter that could not be read is zero.
//
// The browser session is always released, including on cancellation and panics.
package scraper
