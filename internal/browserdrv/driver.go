// Package browserdrv is the browser driver abstraction of spec §4.8: the
// minimal capability surface the interpreter, element resolver, frame
// locator, and assertion evaluator need from a real browser automation
// backend. chromedp_driver.go is the only production implementation; tests use
// small hand-written fakes instead of a mocking framework, following the
// teacher's style.
package browserdrv

import (
	"context"
	"errors"
	"time"
)

// Engine names a browser engine a Browser can launch.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
)

// ErrUnsupportedEngine is returned by NewSession for an engine name the
// backend cannot start.
var ErrUnsupportedEngine = errors.New("browserdrv: unsupported engine")

// ErrRawInputUnavailable is the capability error the interpreter reports
// for dragstart/dragend when Page.RawInput returns false, i.e. the backend
// cannot dispatch trusted input events. RawInput itself returns no error.
var ErrRawInputUnavailable = errors.New("browserdrv: raw input channel unavailable")

// ErrElementNotFound is returned by selector/xpath waits that exceed
// their timeout without a match.
var ErrElementNotFound = errors.New("browserdrv: element not found")

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	Engine   Engine
	Headless bool
}

// Box is an element's bounding box in viewport coordinates.
type Box struct {
	X, Y, Width, Height float64
}

// Center returns the box's center point.
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// ElementKind classifies a form control for the `change` action.
type ElementKind string

const (
	ElementText     ElementKind = "text"
	ElementCheckbox ElementKind = "checkbox"
	ElementRadio    ElementKind = "radio"
	ElementSelect   ElementKind = "select"
	ElementUnknown  ElementKind = "unknown"
)

// Cookie is injected into the active page during OTP seeding.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// UploadFile is set on a file input for the fileSelect action.
type UploadFile struct {
	Name     string
	MimeType string
	Buffer   []byte
}

// Browser launches sessions for a single orchestrator request.
type Browser interface {
	NewSession(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session owns one browser/context/page trio for the request's duration.
// It is closed exactly once by the Session Orchestrator; the Step Runner
// and Action Interpreter only borrow Page().
type Session interface {
	Page() Page
	Close(ctx context.Context) error
}

// Keyboard presses named keys on the top-level page.
type Keyboard interface {
	Press(ctx context.Context, key string) error
}

// RawInput dispatches trusted low-level mouse events, required to make
// dragstart/dragend produce events a page's native drag handlers accept.
type RawInput interface {
	MoveTo(ctx context.Context, x, y float64) error
	MouseDown(ctx context.Context, x, y float64) error
	MouseUp(ctx context.Context, x, y float64) error
}

// Frame is the minimal capability set the interpreter needs, whether it
// is addressing the top page or a matched child iframe (spec §9,
// "Iframe context").
type Frame interface {
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string, waitNetworkIdle bool) error
	Evaluate(ctx context.Context, expression string, out any) error

	// WaitSelector waits up to timeout for a CSS selector to exist in the DOM.
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	// WaitXPath waits up to timeout for an xpath to exist in the DOM.
	WaitXPath(ctx context.Context, xpath string, timeout time.Duration) error
	// IsVisibleXPath reports whether the first node matched by xpath is
	// currently visible (offsetParent !== null), waiting up to timeout
	// for the node to appear first.
	IsVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) (bool, error)

	BoundingBoxSelector(ctx context.Context, selector string) (Box, error)
	BoundingBoxXPath(ctx context.Context, xpath string) (Box, error)
	ScrollIntoViewSelector(ctx context.Context, selector string) error
	ScrollIntoViewXPath(ctx context.Context, xpath string) error
	HoverSelector(ctx context.Context, selector string) error
	HoverXPath(ctx context.Context, xpath string) error
	// ClickXPath dispatches a trusted move+press+release sequence at the
	// bounding box center of the first node matching xpath.
	ClickXPath(ctx context.Context, xpath string) error

	DescribeElementSelector(ctx context.Context, selector string) (ElementKind, error)
	DescribeElementXPath(ctx context.Context, xpath string) (ElementKind, error)
	FillSelector(ctx context.Context, selector, value string) error
	FillXPath(ctx context.Context, xpath, value string) error
	CheckSelector(ctx context.Context, selector string, force bool) error
	CheckXPath(ctx context.Context, xpath string, force bool) error
	ClickLabelFor(ctx context.Context, forAttribute string) error
	SelectByValueSelector(ctx context.Context, selector, value string) error
	SelectByValueXPath(ctx context.Context, xpath, value string) error
	SetInputFilesSelector(ctx context.Context, selector string, file UploadFile) error
	SetInputFilesXPath(ctx context.Context, xpath string, file UploadFile) error

	ScrollWindow(ctx context.Context, x, y float64) error
	ScrollContainer(ctx context.Context, containerXPath string, x, y float64) error

	InjectNoScrollStyle(ctx context.Context) error
	RemoveNoScrollStyle(ctx context.Context) error
}

// Page is the top-level Frame plus the page-scoped capabilities that only
// make sense once per browser tab.
type Page interface {
	Frame

	// Frames enumerates the page's frame set as it is at the time of the
	// call; it does not wait for frames to attach (frames.Locator polls).
	Frames(ctx context.Context) ([]FrameHandle, error)
	Keyboard() Keyboard
	RawInput() (RawInput, bool)
	Screenshot(ctx context.Context) ([]byte, error)
	SetCookie(ctx context.Context, cookie Cookie) error
	WaitForDownload(ctx context.Context, timeout time.Duration) error
}

// FrameHandle pairs a child Frame with its current URL so the Frame
// Locator can match it by origin+path without a redundant round trip.
type FrameHandle struct {
	Frame Frame
	URL   string
}
