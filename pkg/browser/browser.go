// Package browser abstracts the automated browser the scraper drives.
//
// The scraper only depends on the small capability interfaces declared here.
// NewRodLauncher provides the production implementation on top of go-rod;
// package browsertest provides an in-memory one for tests.
package browser

import (
	"context"
	"time"
)

// Launcher starts browser sessions
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is one running browser session. Close releases it and is safe to call more than once.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Scroller measures and scrolls the document
type Scroller interface {
	// ScrollHeight returns the current document.body.scrollHeight
	ScrollHeight(ctx context.Context) (int, error)
	// ScrollBy scrolls the window forward by dy pixels
	ScrollBy(ctx context.Context, dy int) error
}

// Pointer moves the mouse pointer
type Pointer interface {
	MouseMove(ctx context.Context, x, y float64) error
}

// Page is a single browser tab
type Page interface {
	Scroller
	Pointer

	SetUserAgent(ctx context.Context, userAgent string) error
	// Navigate loads url and waits until the network is almost idle, bounded by timeout
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// NavigateBack goes one step back in the tab's history
	NavigateBack(ctx context.Context) error
	// WaitForSelector blocks until an element matching selector exists, bounded by timeout
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// HTML returns the serialized document
	HTML(ctx context.Context) (string, error)
	// URL returns the address of the current document
	URL() string
}
