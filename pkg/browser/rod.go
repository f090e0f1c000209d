package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"ttscraper/pkg/config"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
)

// RodLauncher launches Chrome through go-rod, or connects to a remote instance
type RodLauncher struct {
	cfg     config.BrowserConfig
	antiBot *AntiBot
	logger  logger.Logger
}

// NewRodLauncher creates a launcher. antiBot is shared by all sessions.
func NewRodLauncher(cfg config.BrowserConfig, antiBot *AntiBot, log logger.Logger) *RodLauncher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &RodLauncher{cfg: cfg, antiBot: antiBot, logger: log}
}

// Launch starts a new browser session
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, "launch", err)
	}
	l.antiBot.Init(l.logger)

	var (
		wsURL string
		lnch  *launcher.Launcher
	)

	if l.cfg.RemoteURL != "" {
		wsURL = l.cfg.RemoteURL
		l.logger.WithField("url", wsURL).Debug("Connecting to remote browser")
	} else {
		lnch = launcher.New().
			Headless(l.cfg.Headless).
			NoSandbox(l.cfg.NoSandbox).
			Set("disable-blink-features", "AutomationControlled")
		if l.cfg.Bin != "" {
			lnch = lnch.Bin(l.cfg.Bin)
		}

		u, err := lnch.Launch()
		if err != nil {
			lnch.Cleanup()
			return nil, errs.Session("launch", err)
		}
		wsURL = u
		l.logger.WithFields(map[string]interface{}{
			"url":      wsURL,
			"headless": l.cfg.Headless,
		}).Debug("Launched local browser")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, errs.Session("connect", err)
	}

	return &rodBrowser{
		browser:  b,
		launcher: lnch,
		cfg:      l.cfg,
		antiBot:  l.antiBot,
		logger:   l.logger,
	}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
	antiBot  *AntiBot
	logger   logger.Logger

	mu        sync.Mutex
	routers   []*rod.HijackRouter
	closeOnce sync.Once
	closeErr  error
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, "new page", err)
	}

	var (
		page *rod.Page
		err  error
	)
	if b.antiBot.Stealth() {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, errs.Session("new page", err)
	}

	if len(b.cfg.BlockResources) > 0 {
		router, err := blockResources(page, b.cfg.BlockResources)
		if err != nil {
			b.logger.WithError(err).Warn("Resource blocking failed")
		} else {
			b.mu.Lock()
			b.routers = append(b.routers, router)
			b.mu.Unlock()
		}
	}

	return &rodPage{page: page}, nil
}

func (b *rodBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		for _, r := range b.routers {
			_ = r.Stop()
		}
		b.routers = nil
		b.mu.Unlock()

		b.closeErr = b.browser.Close()
		if b.launcher != nil {
			b.launcher.Cleanup()
		}
		b.logger.Debug("Browser closed")
	})
	return b.closeErr
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	err := p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
	return classify(ctx, errs.ErrorTypeSession, "set user agent", err)
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg := p.page.Context(navCtx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := pg.Navigate(url); err != nil {
		return classify(ctx, errs.ErrorTypeNavigation, "navigate "+url, err)
	}
	wait()

	if err := navCtx.Err(); err != nil {
		return classify(ctx, errs.ErrorTypeNavigation, "navigate "+url, err)
	}
	return nil
}

func (p *rodPage) NavigateBack(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.NavigateBack(); err != nil {
		return classify(ctx, errs.ErrorTypeNavigation, "navigate back", err)
	}
	return classify(ctx, errs.ErrorTypeNavigation, "navigate back", pg.WaitLoad())
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := p.page.Context(waitCtx).Element(selector)
	return classify(ctx, errs.ErrorTypeTimeout, "wait for "+selector, err)
}

func (p *rodPage) MouseMove(ctx context.Context, x, y float64) error {
	err := p.page.Context(ctx).Mouse.MoveTo(proto.Point{X: x, Y: y})
	return classify(ctx, errs.ErrorTypeSession, "mouse move", err)
}

func (p *rodPage) ScrollHeight(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, classify(ctx, errs.ErrorTypeSession, "scroll height", err)
	}
	return res.Value.Int(), nil
}

func (p *rodPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := p.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return classify(ctx, errs.ErrorTypeSession, "scroll by", err)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", classify(ctx, errs.ErrorTypeExtraction, "snapshot", err)
	}
	return html, nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// classify wraps a browser error with its pipeline type. A cancelled parent context
// wins over everything else; a local deadline becomes a timeout.
func classify(ctx context.Context, errType errs.ErrorType, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.Canceled) {
			return errs.Wrap(errs.ErrorTypeCancelled, op, err)
		}
		return errs.Wrap(errs.ErrorTypeTimeout, op, err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrorTypeTimeout, op, fmt.Errorf("timed out: %w", err))
	}
	return errs.Wrap(errType, op, err)
}
