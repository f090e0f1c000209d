package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/config"
	"ttscraper/pkg/counts"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/retry"
)

// Orchestration states, in the order a complete run visits them
const (
	stateLaunching        = "Launching"
	stateNavigating       = "Navigating"
	stateSimulating       = "Simulating"
	statePaginating       = "Paginating"
	stateWaitingFollowers = "WaitingFollowerSelector"
	stateWaitingPosts     = "WaitingPostListSelector"
	stateExtractingList   = "ExtractingPostList"
	stateIteratingPosts   = "IteratingPosts"
	stateAggregating      = "Aggregating"
	stateClosed           = "Closed"
)

// Scraper runs the profile pipeline: open a session, load the profile, read the
// follower count and post listing, then visit the first posts for their details.
type Scraper struct {
	launcher  browser.Launcher
	extractor *Extractor
	cfg       config.ScrapeConfig
	userAgent string
	launch    retry.Config
	logger    logger.Logger
}

// New creates a Scraper. Each ScrapeProfile call launches its own browser session.
// antiBot should be the instance the launcher was built with; nil builds one from cfg.
func New(launcher browser.Launcher, antiBot *browser.AntiBot, cfg *config.Config, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if antiBot == nil {
		antiBot = browser.NewAntiBot(cfg.Browser, cfg.Captcha)
	}
	return &Scraper{
		launcher:  launcher,
		extractor: NewExtractor(cfg.Scrape, log),
		cfg:       cfg.Scrape,
		userAgent: antiBot.UserAgent(),
		launch: retry.Config{
			MaxAttempts: cfg.Browser.LaunchAttempts,
			Backoff:     retry.NewExponentialBackoff(cfg.Browser.LaunchBackoff),
			Logger:      log,
		},
		logger: log,
	}
}

// NormalizeHandle reduces "@name", "name" and full profile URLs to the bare handle
func NormalizeHandle(raw string) string {
	h := strings.TrimSpace(raw)
	if strings.Contains(h, "://") {
		if u, err := url.Parse(h); err == nil {
			h = u.Path
		}
	}
	h = strings.Trim(h, "/")
	if i := strings.Index(h, "/"); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "@"))
}

// ProfileURL returns the profile page address for handle
func (s *Scraper) ProfileURL(handle string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/@" + handle
}

type run struct {
	id      string
	handle  string
	log     logger.Logger
	browser browser.Browser
	result  models.ProfileResult
}

func (r *run) enter(state string) {
	logger.LogScrapeState(r.log, r.id, r.handle, state)
}

// release closes the session if one was opened
func (r *run) release() {
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			r.log.WithError(err).Warn("Failed to close browser")
		}
		r.browser = nil
	}
	r.enter(stateClosed)
}

// abort ends the run with status, unless the run was cancelled
func (r *run) abort(ctx context.Context, status models.RunStatus, err error) models.RunStatus {
	if ctx.Err() != nil || errs.TypeOf(err) == errs.ErrorTypeCancelled {
		status = models.StatusCancelled
	}
	r.log.WithError(err).WarnWithFields("Scrape aborted", map[string]interface{}{
		"status": string(status),
	})
	return status
}

// ScrapeProfile runs the pipeline for one handle. It never fails outright: the
// returned result's Status says how far the run got, and the session is
// released on every path.
func (s *Scraper) ScrapeProfile(ctx context.Context, handle string) (result models.ProfileResult) {
	handle = NormalizeHandle(handle)
	r := &run{
		id:     uuid.NewString(),
		handle: handle,
		result: models.EmptyResult(handle, models.StatusFailed),
	}
	r.log = s.logger.WithFields(map[string]interface{}{
		"run_id": r.id,
		"handle": handle,
	})

	start := time.Now()
	r.log.Info("Scrape started")

	defer r.release()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.ErrorWithFields("Scrape panicked", map[string]interface{}{
				"panic": fmt.Sprint(rec),
			})
			r.result.Status = models.StatusFailed
			result = r.result
		}
	}()

	r.result.Status = s.execute(ctx, r)

	r.log.InfoWithFields("Scrape finished", map[string]interface{}{
		"status":    string(r.result.Status),
		"posts":     len(r.result.Posts),
		"followers": r.result.Followers,
		"elapsed":   time.Since(start),
	})
	return r.result
}

func (s *Scraper) execute(ctx context.Context, r *run) models.RunStatus {
	r.enter(stateLaunching)
	page, err := s.openPage(ctx, r)
	if err != nil {
		return r.abort(ctx, models.StatusSessionFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return r.abort(ctx, models.StatusCancelled, err)
	}
	r.enter(stateNavigating)
	profileURL := s.ProfileURL(r.handle)
	if err := page.Navigate(ctx, profileURL, s.cfg.NavigationTimeout); err != nil {
		return r.abort(ctx, models.StatusNavigationFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return r.abort(ctx, models.StatusCancelled, err)
	}
	r.enter(stateSimulating)
	if err := SimulateHuman(ctx, page, s.cfg.PointerMoves); err != nil {
		return r.abort(ctx, models.StatusSessionFailed, err)
	}

	r.enter(statePaginating)
	report, err := ScrollToEnd(ctx, page, scrollOptionsFrom(s.cfg))
	if err != nil {
		if ctx.Err() != nil {
			return r.abort(ctx, models.StatusCancelled, err)
		}
		r.log.WithError(err).Warn("Profile scroll failed, continuing")
	} else {
		r.log.DebugWithFields("Profile scrolled", map[string]interface{}{
			"steps":       report.Steps,
			"distance":    report.Distance,
			"last_height": report.LastHeight,
			"stable":      report.Stable,
		})
	}
	if err := sleep(ctx, s.cfg.ListingSettle); err != nil {
		return r.abort(ctx, models.StatusCancelled, err)
	}

	r.enter(stateWaitingFollowers)
	if err := page.WaitForSelector(ctx, selectorFollowers, s.cfg.SelectorTimeout); err != nil {
		return r.abort(ctx, waitStatus(err, models.StatusFollowersTimeout), err)
	}
	doc, err := snapshot(ctx, page)
	if err != nil {
		return r.abort(ctx, models.StatusFailed, err)
	}
	r.result.Followers = counts.Parse(doc.Find(selectorFollowers).First().Text())

	r.enter(stateWaitingPosts)
	if err := page.WaitForSelector(ctx, selectorPostItem, s.cfg.SelectorTimeout); err != nil {
		return r.abort(ctx, waitStatus(err, models.StatusPostsTimeout), err)
	}

	r.enter(stateExtractingList)
	doc, err = snapshot(ctx, page)
	if err != nil {
		return r.abort(ctx, models.StatusFailed, err)
	}
	base, _ := url.Parse(profileURL)
	listed := parsePostList(doc, base)
	limit := s.cfg.PostCap
	if limit <= 0 || limit > len(listed) {
		limit = len(listed)
	}
	r.result.Posts = listed[:limit]
	r.log.DebugWithFields("Post list extracted", map[string]interface{}{
		"listed":   len(listed),
		"selected": limit,
	})

	r.enter(stateIteratingPosts)
	for i := range r.result.Posts {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, models.StatusCancelled, err)
		}
		s.scrapePost(ctx, r, page, i)
	}

	r.enter(stateAggregating)
	totals := r.result.Totals()
	r.log.DebugWithFields("Totals aggregated", map[string]interface{}{
		"views":     totals.Views,
		"likes":     totals.Likes,
		"comments":  totals.Comments,
		"saves":     totals.Saves,
		"shares":    totals.Shares,
		"followers": totals.Followers,
	})

	if err := ctx.Err(); err != nil {
		return r.abort(ctx, models.StatusCancelled, err)
	}
	return models.StatusComplete
}

func (s *Scraper) openPage(ctx context.Context, r *run) (browser.Page, error) {
	b, err := retry.DoWithResult(ctx, s.launcher.Launch, s.launch)
	if err != nil {
		return nil, err
	}
	r.browser = b

	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := page.SetUserAgent(ctx, s.userAgent); err != nil {
		return nil, err
	}
	return page, nil
}

// scrapePost fills the detail fields of post i. The page is sent back to the
// listing whatever happens.
func (s *Scraper) scrapePost(ctx context.Context, r *run, page browser.Page, i int) {
	post := &r.result.Posts[i]

	defer func() {
		if err := page.NavigateBack(ctx); err != nil {
			r.log.WithError(err).Debug("Navigate back failed")
		}
	}()

	var err error
	switch {
	case post.Link == "":
		err = errs.New(errs.ErrorTypeExtraction, "open post", "post has no link")
	default:
		err = page.Navigate(ctx, post.Link, s.cfg.NavigationTimeout)
	}

	if err == nil {
		var detail models.PostMetrics
		detail, err = s.extractor.ExtractDetail(ctx, page, post.Link)
		if err == nil {
			post.MergeDetail(detail)
		}
	}

	if err != nil {
		post.ResetDetail()
		post.ExtractionError = err.Error()
	}
	logger.LogPostExtraction(r.log, r.id, post.ID, post.Link, i, err)
}

// waitStatus maps a selector wait failure to a run status
func waitStatus(err error, onTimeout models.RunStatus) models.RunStatus {
	if errs.IsTimeout(err) || stderrors.Is(err, context.DeadlineExceeded) {
		return onTimeout
	}
	return models.StatusFailed
}

func snapshot(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, "parse profile", err)
	}
	return doc, nil
}
