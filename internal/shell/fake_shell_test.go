package shell_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/probeworks/winprobe/internal/shell"
)

// fakeShell is an in-process devtools protocol endpoint. Tests register
// per-method handlers; unhandled methods succeed with an empty result.
type fakeShell struct {
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]handlerFunc
	host     string
	port     int
}

type rpcRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// emitFunc sends a protocol event to the connected client.
type emitFunc func(method, sessionID string, params interface{})

type handlerFunc func(req rpcRequest, emit emitFunc) (interface{}, *rpcError)

func newFakeShell(t *testing.T) *fakeShell {
	t.Helper()

	f := &fakeShell{handlers: make(map[string]handlerFunc)}

	// Every fake needs session attach to work.
	f.handle("Target.attachToTarget", func(req rpcRequest, _ emitFunc) (interface{}, *rpcError) {
		var p struct {
			TargetID string `json:"targetId"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		return map[string]string{"sessionId": "sess-" + p.TargetID}, nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"webSocketDebuggerUrl": "ws://" + r.Host + "/devtools",
		})
	})
	mux.HandleFunc("/devtools", f.serveWS)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	u, err := url.Parse(f.srv.URL)
	if err != nil {
		t.Fatalf("parsing fake shell URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("splitting fake shell address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing fake shell port: %v", err)
	}
	f.host, f.port = host, port

	return f
}

func (f *fakeShell) handle(method string, h handlerFunc) {
	f.mu.Lock()
	f.handlers[method] = h
	f.mu.Unlock()
}

// handler returns the registered handler for a method, for tests that wrap
// an existing handler. Access goes through the same lock as handle/serveWS.
func (f *fakeShell) handler(method string) handlerFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[method]
}

func (f *fakeShell) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.WriteJSON(v)
	}
	emit := func(method, sessionID string, params interface{}) {
		data, _ := json.Marshal(params)
		write(map[string]interface{}{
			"method":    method,
			"sessionId": sessionID,
			"params":    json.RawMessage(data),
		})
	}

	for {
		var req rpcRequest
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
		} else {
			result, rpcErr := h(req, emit)
			if rpcErr != nil {
				resp["error"] = rpcErr
			} else {
				if result == nil {
					result = map[string]interface{}{}
				}
				resp["result"] = result
			}
		}

		write(resp)
	}
}

// connect dials the fake shell and registers cleanup.
func (f *fakeShell) connect(t *testing.T) *shell.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := shell.Connect(ctx, f.host, f.port)
	if err != nil {
		t.Fatalf("failed to connect to fake shell: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}
