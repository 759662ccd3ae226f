// Package browser abstracts the headless browser used to render vendor
// catalogs. The rest of the service talks to Driver, Session and Element;
// the go-rod implementation lives in rod.go and a DOM-only fake for tests
// lives in browsertest.
package browser

import (
	"context"
	"strings"
	"time"
)

// SessionOptions configures a single isolated browsing session.
type SessionOptions struct {
	UserAgent      string
	AcceptLanguage string
	ViewportWidth  int
	ViewportHeight int

	// BlockedResourceTypes lists resource types ("Image", "Font", ...)
	// the session refuses to load.
	BlockedResourceTypes []string

	// Stealth injects the stealth script before every document.
	Stealth bool
}

// Driver opens isolated sessions on a shared browser process.
type Driver interface {
	// NewSession opens a fresh browser context with exactly one page.
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close() error
}

// Session is one isolated browser context plus its page. Close must be
// safe to call more than once.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Evaluate(ctx context.Context, js string) error
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Close() error
}

// Element is a live handle to a node in the session's page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
}

// Committed reports whether location points at a real document, i.e. the
// page left about:blank and did not land on a browser error page.
func Committed(location string) bool {
	switch {
	case location == "", location == "about:blank":
		return false
	case strings.HasPrefix(location, "chrome-error://"):
		return false
	}
	return true
}
