// Package fixture serves the static pages windowing probes navigate to.
// Serving them over loopback HTTP instead of data: URLs keeps origins,
// titles, and preload behavior realistic.
package fixture

import (
	"fmt"
	"net"
	"net/http"
	"sync"
)

// Server is a loopback HTTP server hosting probe fixture pages.
type Server struct {
	listener  net.Listener
	srv       *http.Server
	closeOnce sync.Once
}

// pages maps URL paths to fixture HTML.
var pages = map[string]string{
	"/blank.html": `<!DOCTYPE html>
<html><head><title>blank</title></head><body></body></html>`,

	"/title.html": `<!DOCTYPE html>
<html><head><title>winprobe fixture</title></head>
<body><h1>fixture</h1></body></html>`,

	"/preload.html": `<!DOCTYPE html>
<html><head><title>preload</title>
<script>window.__pageSawPreload = typeof window.__preloadMarker !== "undefined";</script>
</head><body></body></html>`,

	"/animate.html": `<!DOCTYPE html>
<html><head><title>animate</title></head>
<body>
<div id="box" style="width:40px;height:40px;background:#06c;position:absolute"></div>
<script>
let x = 0;
function step() {
	x = (x + 4) % 400;
	document.getElementById("box").style.left = x + "px";
	requestAnimationFrame(step);
}
requestAnimationFrame(step);
</script>
</body></html>`,
}

// Start launches a fixture server on an ephemeral loopback port.
func Start() (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting fixture listener: %w", err)
	}

	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		})
	}

	s := &Server{
		listener: listener,
		srv:      &http.Server{Handler: mux},
	}
	go s.srv.Serve(listener)

	return s, nil
}

// BaseURL returns the server's base URL, without a trailing slash.
func (s *Server) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// PageURL returns the URL of a fixture page, e.g. PageURL("blank.html").
func (s *Server) PageURL(name string) string {
	return s.BaseURL() + "/" + name
}

// Close shuts the server down.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.srv.Close()
	})
	return err
}
