package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/browser/browsertest"
	"ttscraper/pkg/config"
)

const testBaseURL = "https://tt.test"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scrape.BaseURL = testBaseURL
	cfg.Browser.LaunchBackoff = 0
	cfg.Scrape.ListingSettle = 0
	cfg.Scrape.PostSettle = 0
	cfg.Scrape.ScrollInterval = 0
	cfg.Scrape.ScrollMaxSteps = 50
	cfg.Scrape.ScrollMaxDuration = 5 * time.Second
	cfg.Scrape.NavigationTimeout = time.Second
	cfg.Scrape.SelectorTimeout = time.Second
	cfg.Scrape.PointerMoves = []PointerMove{{X: 100, Y: 100}, {X: 200, Y: 200}, {X: 300, Y: 300}}
	return cfg
}

type listing struct {
	href  string
	views string
}

func profileHTML(followers string, items []listing) string {
	var b strings.Builder
	b.WriteString(`<html><body><header>`)
	if followers != "" {
		fmt.Fprintf(&b, `<strong data-e2e="followers-count">%s</strong>`, followers)
	}
	b.WriteString(`</header><main>`)
	for _, it := range items {
		b.WriteString(`<div data-e2e="user-post-item">`)
		if it.href != "" {
			fmt.Fprintf(&b, `<a href="%s"><strong data-e2e="video-views">%s</strong></a>`, it.href, it.views)
		} else {
			fmt.Fprintf(&b, `<strong>%s</strong>`, it.views)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}

type comment struct {
	author string
	text   string
}

type detail struct {
	likes, comments, saves, shares string
	description                    string
	commentList                    []comment
}

func postHTML(d detail) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if d.likes != "" {
		fmt.Fprintf(&b, `<strong data-e2e="like-count">%s</strong>`, d.likes)
	}
	if d.comments != "" {
		fmt.Fprintf(&b, `<strong data-e2e="comment-count">%s</strong>`, d.comments)
	}
	if d.saves != "" {
		fmt.Fprintf(&b, `<strong data-e2e="favorite-count">%s</strong>`, d.saves)
	}
	if d.shares != "" {
		fmt.Fprintf(&b, `<strong data-e2e="share-count">%s</strong>`, d.shares)
	}
	if d.description != "" {
		fmt.Fprintf(&b, `<h1 data-e2e="browse-video-desc">%s</h1>`, d.description)
	}
	b.WriteString(`<section class="comments">`)
	for _, c := range d.commentList {
		b.WriteString(`<div class="comment-item">`)
		if c.author != "" {
			fmt.Fprintf(&b, `<a><span data-e2e="comment-username">%s</span></a>`, c.author)
		}
		fmt.Fprintf(&b, `<p data-e2e="comment-level-1">%s</p></div>`, c.text)
	}
	b.WriteString(`</section></body></html>`)
	return b.String()
}

// pageHook wraps the pages a launcher hands out
type pageHook struct {
	browser.Launcher
	wrap func(browser.Page) browser.Page
}

func (h pageHook) Launch(ctx context.Context) (browser.Browser, error) {
	b, err := h.Launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	return hookedBrowser{Browser: b, wrap: h.wrap}, nil
}

type hookedBrowser struct {
	browser.Browser
	wrap func(browser.Page) browser.Page
}

func (b hookedBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	p, err := b.Browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return b.wrap(p), nil
}

// cancelOnNavigate cancels the run when the page is sent to url
type cancelOnNavigate struct {
	browser.Page
	url    string
	cancel context.CancelFunc
}

func (p cancelOnNavigate) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if url == p.url {
		p.cancel()
	}
	return p.Page.Navigate(ctx, url, timeout)
}

// panicOnHTML panics on the first snapshot
type panicOnHTML struct {
	browser.Page
}

func (p panicOnHTML) HTML(ctx context.Context) (string, error) {
	panic("renderer crashed")
}

func openFakePage(l *browsertest.Launcher, url string) (browser.Page, error) {
	ctx := context.Background()
	b, err := l.Launch(ctx)
	if err != nil {
		return nil, err
	}
	p, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	if url != "" {
		if err := p.Navigate(ctx, url, time.Second); err != nil {
			return nil, err
		}
	}
	return p, nil
}
