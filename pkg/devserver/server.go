// Package devserver serves the output root to browsers and tells them to
// reload when a step has written new output. Stylesheet changes are swapped
// in place; anything else reloads the page.
package devserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/zeebo/blake3"
)

// Endpoints served next to the output root.
const (
	ReloadPath  = "/__kiln/reload"
	ScriptPath  = "/__kiln/reload.js"
	MetricsPath = "/metrics"
)

const (
	scriptTag       = `<script src="` + ScriptPath + `"></script>`
	shutdownTimeout = 5 * time.Second
)

// Server is the dev server bridge.
type Server struct {
	root    string
	addr    string
	hub     *Hub
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves handler on MetricsPath.
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithHub uses hub for reload clients.
func WithHub(hub *Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New returns a server for the output root, listening on addr once started.
func New(root, addr string, opts ...Option) *Server {
	s := &Server{root: root, addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub(nil)
	}
	return s
}

// Hub returns the server's reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(ReloadPath, s.hub)
	mux.HandleFunc(ScriptPath, serveClient)
	if s.metrics != nil {
		mux.Handle(MetricsPath, s.metrics)
	}
	mux.Handle("/", s.static())
	return mux
}

// Start listens on the server's address and serves until ctx is done, then
// disconnects reload clients and shuts down.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	slog.Info("dev server listening", slog.String(klog.Addr, "http://"+listener.Addr().String()))

	select {
	case err := <-errCh:
		s.hub.Shutdown()
		return fmt.Errorf("dev server: %w", err)
	case <-ctx.Done():
	}

	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down dev server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dev server: %w", err)
	}
	return nil
}

// Notify tells connected browsers that class's step wrote the given files.
func (s *Server) Notify(class paths.Class, written []string) {
	if len(written) == 0 {
		return
	}
	kind := KindReload
	if class == paths.Styles {
		kind = KindCSS
	}

	urls := lo.FilterMap(written, func(p string, _ int) (string, bool) {
		rel, err := filepath.Rel(s.root, p)
		if err != nil || !filepath.IsLocal(rel) {
			return "", false
		}
		return "/" + filepath.ToSlash(rel), true
	})

	s.hub.Broadcast(Event{Kind: kind, Paths: urls, Hash: hashFiles(written)})
}

// hashFiles fingerprints the written files so clients can tell repeated
// notifications for unchanged output apart.
func hashFiles(files []string) string {
	hasher := blake3.New()
	sorted := slices.Clone(files)
	slices.Sort(sorted)
	for _, f := range sorted {
		_, _ = io.WriteString(hasher, f)
		_, _ = hasher.Write([]byte{0})
		if contents, err := os.ReadFile(f); err == nil {
			_, _ = hasher.Write(contents)
		}
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func (s *Server) static() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		full := filepath.Join(s.root, filepath.FromSlash(name))
		if filepath.Ext(full) != ".html" {
			files.ServeHTTP(w, r)
			return
		}

		page, err := os.ReadFile(full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, filepath.Base(full), time.Time{}, bytes.NewReader(injectScript(page, scriptTag)))
	})
}
