package shell

import (
	"errors"
	"fmt"

	"github.com/probeworks/winprobe/internal/display"
)

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrProtocolError    = errors.New("protocol error")
)

// ProtocolError represents an error returned by the shell's devtools
// protocol endpoint.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolError
}

// --- Shell & target info ---

// VersionInfo contains shell version information.
type VersionInfo struct {
	Browser         string `json:"browser"`
	ProtocolVersion string `json:"protocol"`
	UserAgent       string `json:"userAgent,omitempty"`
	V8Version       string `json:"v8,omitempty"`
}

// TargetInfo contains information about a shell target (page, worker,
// extension background context).
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// --- Windows ---

// WindowState is the coarse state of a shell window.
type WindowState string

const (
	WindowStateNormal     WindowState = "normal"
	WindowStateMinimized  WindowState = "minimized"
	WindowStateMaximized  WindowState = "maximized"
	WindowStateFullscreen WindowState = "fullscreen"
)

// WindowBounds describes a window's position, size, and state as the shell
// reports them. Updates are serialized through a dedicated wire payload (see
// SetWindowBounds) so that a zero coordinate still reaches the shell.
type WindowBounds struct {
	Left        int         `json:"left"`
	Top         int         `json:"top"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	WindowState WindowState `json:"windowState,omitempty"`
}

// Rect returns the bounds as a display rectangle.
func (b WindowBounds) Rect() display.Rect {
	return display.Rect{X: b.Left, Y: b.Top, Width: b.Width, Height: b.Height}
}

// Size returns the bounds' dimensions.
func (b WindowBounds) Size() display.Size {
	return display.Size{Width: b.Width, Height: b.Height}
}

// hasGeometry reports whether any position/size field is set.
func (b WindowBounds) hasGeometry() bool {
	return b.Left != 0 || b.Top != 0 || b.Width != 0 || b.Height != 0
}

// Window is a shell window attached to a target.
type Window struct {
	ID     int64        `json:"windowId"`
	Bounds WindowBounds `json:"bounds"`
}

// --- Extensions ---

// ExtensionInfo describes an extension context the shell has loaded.
type ExtensionInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"` // "background_page" or "service_worker"
}

// --- JavaScript evaluation ---

// EvalResult contains the result of evaluating a JavaScript expression.
type EvalResult struct {
	Value interface{} `json:"value"`
	Type  string      `json:"type,omitempty"`
}

// --- Navigation ---

// NavigateResult contains the result of a navigation.
type NavigateResult struct {
	FrameID   string `json:"frameId"`
	LoaderID  string `json:"loaderId,omitempty"`
	URL       string `json:"url"`
	ErrorText string `json:"errorText,omitempty"`
}

// --- Screenshots ---

// ScreenshotOptions configures screenshot capture.
type ScreenshotOptions struct {
	Format  string // "png", "jpeg", "webp"
	Quality int    // 0-100, only for jpeg/webp
}
