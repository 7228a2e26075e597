// Package statusapi serves the latest game snapshot over HTTP.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/park285/Cheese-Board/internal/game"
	"github.com/park285/Cheese-Board/internal/preview"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const renderTimeout = 5 * time.Second

// Presser receives presses posted to /press.
type Presser interface {
	Notify()
}

type Server struct {
	mu      sync.RWMutex
	snap    *game.Snapshot
	presser Presser
	logger  *zap.Logger
	srv     *fasthttp.Server
}

func New(presser Presser, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{presser: presser, logger: logger}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "cheese-board",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Publish keeps a copy of the latest snapshot.
func (s *Server) Publish(_ context.Context, snap game.Snapshot) error {
	snap.Moves = append([]string(nil), snap.Moves...)
	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()
	return nil
}

func (s *Server) latest() (game.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return game.Snapshot{}, false
	}
	return *s.snap, true
}

func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case "/state":
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		snap, ok := s.latest()
		if !ok {
			ctx.Error("no game yet", fasthttp.StatusServiceUnavailable)
			return
		}
		body, err := json.Marshal(snap)
		if err != nil {
			ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBody(body)
	case "/board.png":
		snap, ok := s.latest()
		if !ok {
			ctx.Error("no game yet", fasthttp.StatusServiceUnavailable)
			return
		}
		rctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
		png, err := preview.Render(rctx, snap)
		cancel()
		if err != nil {
			s.logger.Warn("preview_render_failed", zap.Error(err))
			ctx.Error("render failed", fasthttp.StatusInternalServerError)
			return
		}
		ctx.SetContentType("image/png")
		ctx.SetBody(png)
	case "/press":
		if !ctx.IsPost() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		if s.presser == nil {
			ctx.Error("remote press disabled", fasthttp.StatusNotFound)
			return
		}
		s.presser.Notify()
		ctx.SetStatusCode(fasthttp.StatusAccepted)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("status_server_listening", zap.String("addr", ln.Addr().String()))
	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.srv.Shutdown(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}
