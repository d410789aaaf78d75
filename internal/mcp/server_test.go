package mcp

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/probeworks/winprobe/internal/config"
	"github.com/probeworks/winprobe/internal/shell"
)

func intPtr(n int) *int { return &n }

func TestHandleRoundingProne(t *testing.T) {
	s := NewServer(&config.Config{})

	tests := []struct {
		scale     float64
		prone     bool
		tolerance int
	}{
		{1.0, false, 0},
		{2.0, false, 0},
		{4.0, false, 0},
		{3.0, true, 1},
		{5.0, true, 1},
		{1.5, true, 1},
		{2.25, true, 1},
	}
	for _, tt := range tests {
		_, out, err := s.handleRoundingProne(context.Background(), nil, RoundingProneInput{Scale: tt.scale})
		if err != nil {
			t.Errorf("scale %v: unexpected error: %v", tt.scale, err)
			continue
		}
		if out.Prone != tt.prone {
			t.Errorf("scale %v: prone = %v, want %v", tt.scale, out.Prone, tt.prone)
		}
		if out.Tolerance != tt.tolerance {
			t.Errorf("scale %v: tolerance = %d, want %d", tt.scale, out.Tolerance, tt.tolerance)
		}
	}
}

func TestHandleRoundingProne_RejectsNonPositive(t *testing.T) {
	s := NewServer(&config.Config{})

	_, _, err := s.handleRoundingProne(context.Background(), nil, RoundingProneInput{Scale: 0})
	if err == nil {
		t.Error("expected error for zero scale")
	}
	_, _, err = s.handleRoundingProne(context.Background(), nil, RoundingProneInput{Scale: -1})
	if err == nil {
		t.Error("expected error for negative scale")
	}
}

func TestHandleCompareBounds_ExplicitScale(t *testing.T) {
	s := NewServer(&config.Config{})
	ctx := context.Background()

	// Size shape, rounding-prone scale, off by one: equal under tolerance.
	_, out, err := s.handleCompareBounds(ctx, nil, CompareBoundsInput{
		Actual:   BoundsArg{Width: 800, Height: 601},
		Expected: BoundsArg{Width: 800, Height: 600},
		Scale:    1.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Equal {
		t.Errorf("expected equal under tolerance, got mismatch: %s", out.Mismatch)
	}
	if out.Tolerance != 1 {
		t.Errorf("expected tolerance 1, got %d", out.Tolerance)
	}

	// Same values at an exact scale: not equal.
	_, out, err = s.handleCompareBounds(ctx, nil, CompareBoundsInput{
		Actual:   BoundsArg{Width: 800, Height: 601},
		Expected: BoundsArg{Width: 800, Height: 600},
		Scale:    2.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Equal {
		t.Error("expected mismatch at exact scale")
	}
	if !strings.Contains(out.Mismatch, "height") {
		t.Errorf("expected mismatch to name the height field, got %q", out.Mismatch)
	}
}

func TestHandleCompareBounds_RectShape(t *testing.T) {
	s := NewServer(&config.Config{})

	_, out, err := s.handleCompareBounds(context.Background(), nil, CompareBoundsInput{
		Actual:   BoundsArg{X: intPtr(0), Y: intPtr(0), Width: 60, Height: 61},
		Expected: BoundsArg{X: intPtr(0), Y: intPtr(0), Width: 60, Height: 60},
		Scale:    1.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Equal {
		t.Errorf("expected rects equal under tolerance, got mismatch: %s", out.Mismatch)
	}
}

func TestHandleCompareBounds_ShapeMismatch(t *testing.T) {
	s := NewServer(&config.Config{})

	_, _, err := s.handleCompareBounds(context.Background(), nil, CompareBoundsInput{
		Actual:   BoundsArg{X: intPtr(10), Width: 60, Height: 60},
		Expected: BoundsArg{Width: 60, Height: 60},
		Scale:    1.0,
	})
	if err == nil {
		t.Fatal("expected error comparing a rect against a size")
	}
	if !strings.Contains(err.Error(), "shape") {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- tools that need a live shell, backed by a fake protocol endpoint ---

// fakeEndpoint is a minimal devtools endpoint for handler tests.
type fakeEndpoint struct {
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]func(params json.RawMessage) (interface{}, error)
	host     string
	port     int
}

func newFakeEndpoint(t *testing.T) *fakeEndpoint {
	t.Helper()

	f := &fakeEndpoint{handlers: make(map[string]func(json.RawMessage) (interface{}, error))}
	f.handlers["Target.attachToTarget"] = func(json.RawMessage) (interface{}, error) {
		return map[string]string{"sessionId": "S1"}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"webSocketDebuggerUrl": "ws://" + r.Host + "/devtools",
		})
	})
	mux.HandleFunc("/devtools", func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req struct {
				ID        int64           `json:"id"`
				SessionID string          `json:"sessionId"`
				Method    string          `json:"method"`
				Params    json.RawMessage `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			f.mu.Lock()
			h := f.handlers[req.Method]
			f.mu.Unlock()

			resp := map[string]interface{}{"id": req.ID}
			if req.SessionID != "" {
				resp["sessionId"] = req.SessionID
			}
			if h == nil {
				resp["result"] = map[string]interface{}{}
			} else if result, err := h(req.Params); err != nil {
				resp["error"] = map[string]interface{}{"code": -1, "message": err.Error()}
			} else {
				resp["result"] = result
			}
			conn.WriteJSON(resp)
		}
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	u, err := url.Parse(f.srv.URL)
	if err != nil {
		t.Fatalf("parsing fake endpoint URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("splitting fake endpoint address: %v", err)
	}
	f.host = host
	f.port, err = strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing fake endpoint port: %v", err)
	}

	return f
}

func (f *fakeEndpoint) handle(method string, h func(json.RawMessage) (interface{}, error)) {
	f.mu.Lock()
	f.handlers[method] = h
	f.mu.Unlock()
}

// serverFor builds an MCP server wired to the fake endpoint.
func serverFor(t *testing.T, f *fakeEndpoint) *Server {
	t.Helper()

	s := NewServer(&config.Config{Host: f.host, Port: f.port})
	s.dialFn = shell.Connect
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandleGetWindow(t *testing.T) {
	f := newFakeEndpoint(t)
	f.handle("Target.getTargets", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"targetInfos": []map[string]string{
				{"targetId": "T1", "type": "page", "url": "app://main"},
			},
		}, nil
	})
	f.handle("Browser.getWindowForTarget", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"windowId": 7,
			"bounds": map[string]interface{}{
				"left": 10, "top": 20, "width": 800, "height": 600,
				"windowState": "normal",
			},
		}, nil
	})

	s := serverFor(t, f)

	// No target ID: resolves to the first page.
	_, out, err := s.handleGetWindow(context.Background(), nil, GetWindowInput{})
	if err != nil {
		t.Fatalf("get_window failed: %v", err)
	}
	if out.WindowID != 7 {
		t.Errorf("expected window 7, got %d", out.WindowID)
	}
	if out.Width != 800 || out.Height != 600 {
		t.Errorf("unexpected size %dx%d", out.Width, out.Height)
	}
	if out.State != "normal" {
		t.Errorf("expected normal state, got %q", out.State)
	}
}

func TestHandleGetDisplay(t *testing.T) {
	f := newFakeEndpoint(t)
	f.handle("Runtime.evaluate", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"result": map[string]interface{}{
				"type": "object",
				"value": map[string]interface{}{
					"scaleFactor": 3.0,
					"width":       1920, "height": 1080,
					"availX": 0, "availY": 0,
					"availWidth": 1920, "availHeight": 1080,
				},
			},
		}, nil
	})

	s := serverFor(t, f)

	_, out, err := s.handleGetDisplay(context.Background(), nil, GetDisplayInput{TargetID: "T1"})
	if err != nil {
		t.Fatalf("get_display failed: %v", err)
	}
	if out.ScaleFactor != 3.0 {
		t.Errorf("expected scale 3.0, got %v", out.ScaleFactor)
	}
	if !out.RoundingProne {
		t.Error("scale 3.0 must be reported rounding-prone")
	}
}

func TestHandleCompareBounds_LiveScale(t *testing.T) {
	f := newFakeEndpoint(t)
	f.handle("Runtime.evaluate", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"result": map[string]interface{}{
				"type": "object",
				"value": map[string]interface{}{
					"scaleFactor": 1.25,
					"width":       1920, "height": 1080,
					"availX": 0, "availY": 0,
					"availWidth": 1920, "availHeight": 1080,
				},
			},
		}, nil
	})

	s := serverFor(t, f)

	// No scale given: read 1.25 from the shell, which is rounding-prone.
	_, out, err := s.handleCompareBounds(context.Background(), nil, CompareBoundsInput{
		Actual:   BoundsArg{Width: 100, Height: 99},
		Expected: BoundsArg{Width: 100, Height: 100},
		TargetID: "T1",
	})
	if err != nil {
		t.Fatalf("compare_bounds failed: %v", err)
	}
	if out.Scale != 1.25 {
		t.Errorf("expected live scale 1.25, got %v", out.Scale)
	}
	if !out.Equal {
		t.Errorf("expected equal under tolerance, got mismatch: %s", out.Mismatch)
	}
}

func TestHandleCompareBounds_ConfiguredScale(t *testing.T) {
	// A scale pinned in the config is the default when the caller gives
	// none; no shell connection is needed or made.
	s := NewServer(&config.Config{Scale: 1.5})

	_, out, err := s.handleCompareBounds(context.Background(), nil, CompareBoundsInput{
		Actual:   BoundsArg{Width: 100, Height: 99},
		Expected: BoundsArg{Width: 100, Height: 100},
	})
	if err != nil {
		t.Fatalf("compare_bounds failed: %v", err)
	}
	if out.Scale != 1.5 {
		t.Errorf("expected configured scale 1.5, got %v", out.Scale)
	}
	if !out.Equal {
		t.Errorf("expected equal under tolerance, got mismatch: %s", out.Mismatch)
	}

	// An explicit per-call scale still wins over the configured one.
	_, out, err = s.handleCompareBounds(context.Background(), nil, CompareBoundsInput{
		Actual:   BoundsArg{Width: 100, Height: 99},
		Expected: BoundsArg{Width: 100, Height: 100},
		Scale:    2.0,
	})
	if err != nil {
		t.Fatalf("compare_bounds failed: %v", err)
	}
	if out.Scale != 2.0 {
		t.Errorf("expected explicit scale 2.0, got %v", out.Scale)
	}
	if out.Equal {
		t.Error("expected mismatch at exact scale")
	}
}

func TestHandleProbeWindowFlags_ConfiguredScale(t *testing.T) {
	f := newFakeEndpoint(t)
	f.handle("Target.getTargets", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"targetInfos": []map[string]string{
				{"targetId": "T1", "type": "page", "url": "app://main"},
			},
		}, nil
	})

	// A window manager that applies every requested coordinate one unit
	// short: probes only pass when the pinned rounding-prone scale widens
	// the tolerance to 1.
	type geom struct{ left, top, width, height int }
	var mu sync.Mutex
	g := geom{left: 100, top: 50, width: 800, height: 600}
	boundsResult := func() map[string]interface{} {
		return map[string]interface{}{
			"left": g.left, "top": g.top,
			"width": g.width, "height": g.height,
			"windowState": "normal",
		}
	}

	f.handle("Browser.getWindowForTarget", func(json.RawMessage) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		return map[string]interface{}{"windowId": 7, "bounds": boundsResult()}, nil
	})
	f.handle("Browser.getWindowBounds", func(json.RawMessage) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		return map[string]interface{}{"bounds": boundsResult()}, nil
	})
	f.handle("Browser.setWindowBounds", func(params json.RawMessage) (interface{}, error) {
		var p struct {
			Bounds struct {
				Left   *int `json:"left"`
				Top    *int `json:"top"`
				Width  *int `json:"width"`
				Height *int `json:"height"`
			} `json:"bounds"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		mu.Lock()
		defer mu.Unlock()
		if p.Bounds.Left != nil {
			g.left = *p.Bounds.Left - 1
		}
		if p.Bounds.Top != nil {
			g.top = *p.Bounds.Top - 1
		}
		if p.Bounds.Width != nil {
			g.width = *p.Bounds.Width - 1
		}
		if p.Bounds.Height != nil {
			g.height = *p.Bounds.Height - 1
		}
		return map[string]interface{}{}, nil
	})

	s := NewServer(&config.Config{Host: f.host, Port: f.port, Scale: 1.5})
	t.Cleanup(func() { s.Close() })

	_, out, err := s.handleProbeWindowFlags(context.Background(), nil, ProbeWindowFlagsInput{})
	if err != nil {
		t.Fatalf("probe_window_flags failed: %v", err)
	}
	if !out.Resizable {
		t.Error("expected resizable under the configured tolerance")
	}
	if !out.Movable {
		t.Error("expected movable under the configured tolerance")
	}
}

func TestHandleSetWindowState_RejectsUnknownState(t *testing.T) {
	s := NewServer(&config.Config{})

	_, _, err := s.handleSetWindowState(context.Background(), nil, SetWindowStateInput{State: "sideways"})
	if err == nil {
		t.Fatal("expected error for unknown state")
	}
	if !strings.Contains(err.Error(), "sideways") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHandleListExtensions(t *testing.T) {
	f := newFakeEndpoint(t)
	f.handle("Target.getTargets", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"targetInfos": []map[string]string{
				{"targetId": "T1", "type": "page", "url": "app://main"},
				{"targetId": "T2", "type": "service_worker", "title": "Probe", "url": "chrome-extension://aaaabbbbccccdddd/sw.js"},
			},
		}, nil
	})

	s := serverFor(t, f)

	_, out, err := s.handleListExtensions(context.Background(), nil, ListExtensionsInput{})
	if err != nil {
		t.Fatalf("list_extensions failed: %v", err)
	}
	if len(out.Extensions) != 1 {
		t.Fatalf("expected 1 extension, got %d", len(out.Extensions))
	}
	if out.Extensions[0].ID != "aaaabbbbccccdddd" {
		t.Errorf("unexpected extension ID %q", out.Extensions[0].ID)
	}
}

func TestResolveTarget_NoPages(t *testing.T) {
	f := newFakeEndpoint(t)
	f.handle("Target.getTargets", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"targetInfos": []map[string]string{}}, nil
	})

	s := serverFor(t, f)

	_, _, err := s.handleGetWindow(context.Background(), nil, GetWindowInput{})
	if err == nil {
		t.Fatal("expected error when no pages exist")
	}
	if !strings.Contains(err.Error(), "no page targets") {
		t.Errorf("unexpected error: %v", err)
	}
}
