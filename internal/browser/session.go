// Package browser provides the page-interaction primitive used by
// resolution and extraction: navigate, read text, click by text, and read
// rendered tables. One Session maps to one exclusive browser tab; sessions
// are never shared between workers.
package browser

import (
	"context"
	"time"
)

// Session is a scoped page-interaction handle. All methods may block up to
// the session timeout; failures are typed transient so callers can retry or
// reacquire.
type Session interface {
	// Navigate loads a URL and waits for the configured settle time.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the tab's current location, which may differ from
	// the navigated URL after a redirect.
	CurrentURL(ctx context.Context) (string, error)
	// BodyText returns the rendered text content of the page body.
	BodyText(ctx context.Context) (string, error)
	// BodyHTML returns the rendered HTML of the page body, for table
	// parsing.
	BodyHTML(ctx context.Context) (string, error)
	// ClickText clicks the first visible element containing the given text.
	ClickText(ctx context.Context, text string) error
	// EnterPageNumber types a page number into the paginator input and
	// submits it.
	EnterPageNumber(ctx context.Context, page int) error
	// Screenshot captures the viewport to the given file path.
	Screenshot(ctx context.Context, path string) error
	// Close releases the tab.
	Close() error
}

// Factory acquires sessions. Each worker acquires exactly one at startup
// and reacquires only after a session-lost failure.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Waits groups the settle times applied after page interactions. The site
// renders tables asynchronously, so fixed waits are part of the protocol.
type Waits struct {
	PageLoad  time.Duration
	TabClick  time.Duration
	TableLoad time.Duration
	Extra     time.Duration
}
