// Package browsertest provides an in-memory browser.Launcher that serves static
// HTML documents, for testing code that drives a browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ttscraper/pkg/browser"
	errs "ttscraper/pkg/errors"
)

// DefaultHeight is the scroll height of a document that does not set one
const DefaultHeight = 1000

// Document is one page the fake browser can load
type Document struct {
	HTML string
	// Height is the initial document.body.scrollHeight
	Height int
	// Grow is added to the height after every scroll, to model endless feeds
	Grow int

	NavigateErr error
	HTMLErr     error
}

// Point is a recorded pointer position
type Point struct {
	X, Y float64
}

// Launcher is a fake browser.Launcher. Configure it before use; counters are safe
// to read concurrently.
type Launcher struct {
	LaunchErr error
	// FailLaunches limits LaunchErr to the first n attempts; 0 fails every attempt
	FailLaunches int

	NewPageErr   error
	UserAgentErr error
	MouseErr     error
	ScrollErr    error

	mu       sync.Mutex
	attempts int
	docs     map[string]*Document
	browsers []*Browser
	pages    []*Page
}

// NewLauncher creates an empty fake launcher
func NewLauncher() *Launcher {
	return &Launcher{docs: make(map[string]*Document)}
}

// AddDocument registers the document served at url
func (l *Launcher) AddDocument(url string, doc Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := doc
	l.docs[url] = &d
}

func (l *Launcher) document(url string) (*Document, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.docs[url]
	return d, ok
}

// Launch implements browser.Launcher
func (l *Launcher) Launch(ctx context.Context) (browser.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, "launch", err)
	}
	l.mu.Lock()
	l.attempts++
	attempt := l.attempts
	l.mu.Unlock()
	if l.LaunchErr != nil && (l.FailLaunches == 0 || attempt <= l.FailLaunches) {
		return nil, errs.Session("launch", l.LaunchErr)
	}

	b := &Browser{launcher: l}
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

// Launches returns how many sessions were started
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.browsers)
}

// LaunchAttempts returns how many times Launch was called, failed calls included
func (l *Launcher) LaunchAttempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Browsers returns every session started so far
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Browser, len(l.browsers))
	copy(out, l.browsers)
	return out
}

// Pages returns every page opened so far
func (l *Launcher) Pages() []*Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Page, len(l.pages))
	copy(out, l.pages)
	return out
}

// Browser is a fake browser.Browser
type Browser struct {
	launcher *Launcher

	mu         sync.Mutex
	closeCalls int
}

// NewPage implements browser.Browser
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, "new page", err)
	}
	if b.launcher.NewPageErr != nil {
		return nil, errs.Session("new page", b.launcher.NewPageErr)
	}

	p := &Page{launcher: b.launcher}
	b.launcher.mu.Lock()
	b.launcher.pages = append(b.launcher.pages, p)
	b.launcher.mu.Unlock()
	return p, nil
}

// Close implements browser.Browser and counts every call
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCalls++
	return nil
}

// CloseCalls returns how many times Close was called
func (b *Browser) CloseCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCalls
}

// Page is a fake browser.Page with a navigation history
type Page struct {
	launcher *Launcher

	mu        sync.Mutex
	userAgent string
	history   []string
	visited   []string
	backs     int
	moves     []Point
	scrolls   int
	grown     map[string]int
}

// SetUserAgent implements browser.Page
func (p *Page) SetUserAgent(ctx context.Context, userAgent string) error {
	if p.launcher.UserAgentErr != nil {
		return errs.Session("set user agent", p.launcher.UserAgentErr)
	}
	p.mu.Lock()
	p.userAgent = userAgent
	p.mu.Unlock()
	return nil
}

// Navigate implements browser.Page. Unknown URLs fail like a DNS error would.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, "navigate "+url, err)
	}
	doc, ok := p.launcher.document(url)
	if !ok {
		return errs.Navigation("navigate "+url, fmt.Errorf("no document at %s", url))
	}
	if doc.NavigateErr != nil {
		return errs.Navigation("navigate "+url, doc.NavigateErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, url)
	p.visited = append(p.visited, url)
	return nil
}

// NavigateBack implements browser.Page
func (p *Page) NavigateBack(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backs++
	if len(p.history) < 2 {
		return errs.Navigation("navigate back", fmt.Errorf("no previous page"))
	}
	p.history = p.history[:len(p.history)-1]
	return nil
}

// WaitForSelector implements browser.Page. Documents are static, so a missing
// element times out immediately.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, "wait for "+selector, err)
	}
	doc, err := p.current()
	if err != nil {
		return err
	}
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, "wait for "+selector, err)
	}
	if parsed.Find(selector).Length() == 0 {
		return errs.Timeout("wait for "+selector, context.DeadlineExceeded)
	}
	return nil
}

// MouseMove implements browser.Page
func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	if p.launcher.MouseErr != nil {
		return errs.Session("mouse move", p.launcher.MouseErr)
	}
	p.mu.Lock()
	p.moves = append(p.moves, Point{X: x, Y: y})
	p.mu.Unlock()
	return nil
}

// ScrollHeight implements browser.Page
func (p *Page) ScrollHeight(ctx context.Context) (int, error) {
	if p.launcher.ScrollErr != nil {
		return 0, errs.Session("scroll height", p.launcher.ScrollErr)
	}
	doc, err := p.current()
	if err != nil {
		return 0, err
	}

	height := doc.Height
	if height == 0 {
		height = DefaultHeight
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return height + p.grown[p.history[len(p.history)-1]], nil
}

// ScrollBy implements browser.Page
func (p *Page) ScrollBy(ctx context.Context, dy int) error {
	if p.launcher.ScrollErr != nil {
		return errs.Session("scroll by", p.launcher.ScrollErr)
	}
	doc, err := p.current()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	if doc.Grow > 0 {
		if p.grown == nil {
			p.grown = make(map[string]int)
		}
		p.grown[p.history[len(p.history)-1]] += doc.Grow
	}
	return nil
}

// HTML implements browser.Page
func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(errs.ErrorTypeCancelled, "snapshot", err)
	}
	doc, err := p.current()
	if err != nil {
		return "", err
	}
	if doc.HTMLErr != nil {
		return "", errs.Extraction("snapshot", doc.HTMLErr)
	}
	return doc.HTML, nil
}

// URL implements browser.Page
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return "about:blank"
	}
	return p.history[len(p.history)-1]
}

func (p *Page) current() (*Document, error) {
	url := p.URL()
	doc, ok := p.launcher.document(url)
	if !ok {
		return nil, errs.Navigation("current document", fmt.Errorf("no document at %s", url))
	}
	return doc, nil
}

// UserAgent returns the last user agent set
func (p *Page) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgent
}

// Visited returns every URL navigated to, in order
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.visited))
	copy(out, p.visited)
	return out
}

// Backs returns how many times NavigateBack was called
func (p *Page) Backs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backs
}

// Moves returns the recorded pointer positions
func (p *Page) Moves() []Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Point, len(p.moves))
	copy(out, p.moves)
	return out
}

// Scrolls returns how many times ScrollBy was called
func (p *Page) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}
