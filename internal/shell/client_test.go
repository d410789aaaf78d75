package shell_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/probeworks/winprobe/internal/shell"
)

func TestConnect_FailsWithBadPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := shell.Connect(ctx, "localhost", 1)
	if err == nil {
		t.Error("expected connection to fail on port 1")
	}
}

func TestConnect_FailsWithBadHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := shell.Connect(ctx, "nonexistent.invalid", 9222)
	if err == nil {
		t.Error("expected connection to fail with invalid host")
	}
}

func TestWebSocketURL(t *testing.T) {
	f := newFakeShell(t)
	client := f.connect(t)

	wsURL := client.WebSocketURL()
	if !strings.HasPrefix(wsURL, "ws://") {
		t.Errorf("expected WebSocket URL to start with ws://, got %s", wsURL)
	}
	if !strings.HasSuffix(wsURL, "/devtools") {
		t.Errorf("expected WebSocket URL to end with /devtools, got %s", wsURL)
	}
}

func TestVersion(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Browser.getVersion", func(rpcRequest, emitFunc) (interface{}, *rpcError) {
		return map[string]string{
			"product":         "TestShell/1.0",
			"protocolVersion": "1.3",
			"userAgent":       "TestShell",
			"jsVersion":       "12.0",
		}, nil
	})
	client := f.connect(t)

	ctx := context.Background()
	version, err := client.Version(ctx)
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}

	if version.Browser != "TestShell/1.0" {
		t.Errorf("expected browser TestShell/1.0, got %q", version.Browser)
	}
	if version.ProtocolVersion != "1.3" {
		t.Errorf("expected protocol version 1.3, got %q", version.ProtocolVersion)
	}
	if version.V8Version != "12.0" {
		t.Errorf("expected v8 version 12.0, got %q", version.V8Version)
	}
}

func TestCall_ProtocolError(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Invalid.method", func(rpcRequest, emitFunc) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32601, Message: "'Invalid.method' wasn't found"}
	})
	client := f.connect(t)

	_, err := client.Call(context.Background(), "Invalid.method", nil)
	if err == nil {
		t.Fatal("expected error for invalid method")
	}
	if !errors.Is(err, shell.ErrProtocolError) {
		t.Errorf("expected ErrProtocolError, got %v", err)
	}
	if !strings.Contains(err.Error(), "-32601") {
		t.Errorf("expected error code in message, got: %v", err)
	}
}

func TestCall_AfterCloseReturnsErrConnectionClosed(t *testing.T) {
	f := newFakeShell(t)
	client := f.connect(t)

	if err := client.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	_, err := client.Call(context.Background(), "Browser.getVersion", nil)
	if !errors.Is(err, shell.ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestTargets_And_Pages(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Target.getTargets", func(rpcRequest, emitFunc) (interface{}, *rpcError) {
		return map[string]interface{}{
			"targetInfos": []map[string]string{
				{"targetId": "T1", "type": "page", "title": "Main", "url": "app://main"},
				{"targetId": "T2", "type": "service_worker", "title": "", "url": "app://sw.js"},
				{"targetId": "T3", "type": "page", "title": "Settings", "url": "app://settings"},
			},
		}, nil
	})
	client := f.connect(t)
	ctx := context.Background()

	targets, err := client.Targets(ctx)
	if err != nil {
		t.Fatalf("failed to get targets: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
	if targets[0].ID != "T1" || targets[0].Type != "page" {
		t.Errorf("unexpected first target: %+v", targets[0])
	}

	pages, err := client.Pages(ctx)
	if err != nil {
		t.Fatalf("failed to get pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for _, p := range pages {
		if p.Type != "page" {
			t.Errorf("expected type 'page', got %q", p.Type)
		}
	}
}

func TestEval_ReturnsValue(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Runtime.evaluate", func(req rpcRequest, _ emitFunc) (interface{}, *rpcError) {
		var p struct {
			Expression string `json:"expression"`
		}
		json.Unmarshal(req.Params, &p)
		if p.Expression != "1 + 2" {
			return nil, &rpcError{Code: -1, Message: "unexpected expression: " + p.Expression}
		}
		return map[string]interface{}{
			"result": map[string]interface{}{"type": "number", "value": 3},
		}, nil
	})
	client := f.connect(t)

	result, err := client.Eval(context.Background(), "T1", "1 + 2")
	if err != nil {
		t.Fatalf("failed to eval: %v", err)
	}
	if v, ok := result.Value.(float64); !ok || v != 3 {
		t.Errorf("expected value 3, got %v (%T)", result.Value, result.Value)
	}
}

func TestEval_JSException(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Runtime.evaluate", func(rpcRequest, emitFunc) (interface{}, *rpcError) {
		return map[string]interface{}{
			"result":           map[string]interface{}{"type": "object"},
			"exceptionDetails": map[string]interface{}{"text": "Uncaught"},
		}, nil
	})
	client := f.connect(t)

	_, err := client.Eval(context.Background(), "T1", "throw new Error('boom')")
	if err == nil {
		t.Fatal("expected error for thrown exception")
	}
	if !strings.Contains(err.Error(), "JS exception") {
		t.Errorf("expected 'JS exception' in error, got: %v", err)
	}
}

func TestNavigateAndWait_WaitsForLoadEvent(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Page.navigate", func(req rpcRequest, emit emitFunc) (interface{}, *rpcError) {
		emit("Page.loadEventFired", req.SessionID, map[string]float64{"timestamp": 1})
		return map[string]string{"frameId": "F1", "loaderId": "L1"}, nil
	})
	client := f.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.NavigateAndWait(ctx, "T1", "app://settings")
	if err != nil {
		t.Fatalf("failed to navigate: %v", err)
	}
	if result.FrameID != "F1" {
		t.Errorf("expected frame F1, got %q", result.FrameID)
	}
	if result.URL != "app://settings" {
		t.Errorf("expected URL app://settings, got %q", result.URL)
	}
}

func TestNavigateAndWait_ReportsErrorText(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Page.navigate", func(rpcRequest, emitFunc) (interface{}, *rpcError) {
		return map[string]string{"frameId": "F1", "errorText": "net::ERR_NAME_NOT_RESOLVED"}, nil
	})
	client := f.connect(t)

	result, err := client.NavigateAndWait(context.Background(), "T1", "http://nonexistent.invalid/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorText != "net::ERR_NAME_NOT_RESOLVED" {
		t.Errorf("expected error text, got %q", result.ErrorText)
	}
}

func TestCloseTarget(t *testing.T) {
	f := newFakeShell(t)
	var closedID string
	f.handle("Target.closeTarget", func(req rpcRequest, _ emitFunc) (interface{}, *rpcError) {
		var p struct {
			TargetID string `json:"targetId"`
		}
		json.Unmarshal(req.Params, &p)
		closedID = p.TargetID
		return map[string]bool{"success": true}, nil
	})
	client := f.connect(t)

	if err := client.CloseTarget(context.Background(), "T9"); err != nil {
		t.Fatalf("failed to close target: %v", err)
	}
	if closedID != "T9" {
		t.Errorf("expected target T9 closed, got %q", closedID)
	}
}

func TestLoadedExtensions(t *testing.T) {
	f := newFakeShell(t)
	f.handle("Target.getTargets", func(rpcRequest, emitFunc) (interface{}, *rpcError) {
		return map[string]interface{}{
			"targetInfos": []map[string]string{
				{"targetId": "T1", "type": "page", "title": "Main", "url": "app://main"},
				{"targetId": "T2", "type": "background_page", "title": "DevTool", "url": "chrome-extension://abcdefghijklmnop/_generated_background_page.html"},
				{"targetId": "T3", "type": "service_worker", "title": "Helper", "url": "chrome-extension://ponmlkjihgfedcba/sw.js"},
			},
		}, nil
	})
	client := f.connect(t)
	ctx := context.Background()

	exts, err := client.LoadedExtensions(ctx)
	if err != nil {
		t.Fatalf("failed to list extensions: %v", err)
	}
	if len(exts) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(exts))
	}
	if exts[0].ID != "abcdefghijklmnop" {
		t.Errorf("expected first extension ID abcdefghijklmnop, got %q", exts[0].ID)
	}
	if exts[1].Type != "service_worker" {
		t.Errorf("expected service_worker type, got %q", exts[1].Type)
	}

	loaded, err := client.ExtensionLoaded(ctx, "ponmlkjihgfedcba")
	if err != nil {
		t.Fatalf("failed to check extension: %v", err)
	}
	if !loaded {
		t.Error("expected extension ponmlkjihgfedcba to be loaded")
	}

	loaded, err = client.ExtensionLoaded(ctx, "nope")
	if err != nil {
		t.Fatalf("failed to check extension: %v", err)
	}
	if loaded {
		t.Error("expected extension 'nope' to be absent")
	}
}
