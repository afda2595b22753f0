package port

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Session.Find and Session.FindByText when no
// element matches. Callers treat it as a normal page state, not a fault.
var ErrNotFound = errors.New("element not found")

// Element is a visible DOM node handle.
type Element interface {
	Click() error
	Input(text string) error
	Text() (string, error)
	Attribute(name string) (string, error)
	// Visible reports whether the element is rendered and interactable.
	Visible() bool
	// FontSizePx returns the computed font size in pixels, 0 when it cannot
	// be determined.
	FontSizePx() float64
}

// Session is one exclusive browser session. All lookups reflect the live page
// at call time; no handle survives a navigation.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	// WaitReady blocks until the document reports ready-state "complete" or
	// the timeout elapses.
	WaitReady(ctx context.Context, timeout time.Duration) error
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
	// FindByText returns the first element whose text contains the given
	// lower-cased fragment.
	FindByText(textLower string) (Element, error)
	Cookie(name string) (value string, ok bool)
	CurrentURL() string
	PageSource() string
	Screenshot() ([]byte, error)
	FullPageScreenshot() ([]byte, error)
	Close() error
}

// SessionOptions carries the process-wide automation settings applied when a
// session is opened.
type SessionOptions struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	// ChromeBin overrides the browser binary; empty means auto-detect.
	ChromeBin string
}

// SessionProvider opens exclusive browser sessions.
type SessionProvider interface {
	Open(ctx context.Context, opts SessionOptions) (Session, error)
}
