// Package statusfeed pushes playback status changes to websocket subscribers.
package statusfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/d2verb/podbridge/internal/podcast"
)

// DefaultInterval is how often the player is polled.
const DefaultInterval = time.Second

// Path is the websocket endpoint.
const Path = "/status"

// StatusSource reports the current playback status.
type StatusSource interface {
	Status(ctx context.Context) (podcast.PlaybackStatus, error)
}

// Feed serves the status websocket.
type Feed struct {
	source   StatusSource
	interval time.Duration
	logger   *slog.Logger

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a feed polling source every interval.
func New(source StatusSource, interval time.Duration, logger *slog.Logger) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Feed{source: source, interval: interval, logger: logger}
}

// CheckAddress rejects listen addresses that are not on a loopback interface.
func CheckAddress(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid status feed address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("status feed address %q is not loopback", addr)
	}
	return nil
}

// Handler returns the HTTP handler serving Path.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Path, f.serveStatus)
	return mux
}

// Start listens on addr and serves until Stop or until ctx is done.
func (f *Feed) Start(ctx context.Context, addr string) error {
	if err := CheckAddress(addr); err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen status feed: %w", err)
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.listener = l
	f.server = &http.Server{
		Handler:           f.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := f.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("status feed stopped", "error", err)
		}
	}()
	f.logger.Info("status feed listening", "address", l.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (f *Feed) Addr() string {
	if f.listener == nil {
		return ""
	}
	return f.listener.Addr().String()
}

// Stop shuts the HTTP server down and ends open subscriptions.
func (f *Feed) Stop(ctx context.Context) error {
	if f.server == nil {
		return nil
	}
	f.cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		return f.server.Close()
	}
	return nil
}

func (f *Feed) serveStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.logger.Debug("status feed accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Subscribers only listen; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())
	if err := f.push(ctx, conn); err != nil && ctx.Err() == nil {
		f.logger.Debug("status feed subscriber dropped", "error", err)
	}
}

// push writes the status once and then on every change until ctx is done.
func (f *Feed) push(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var last []byte
	for {
		payload, err := f.snapshot(ctx)
		if err != nil {
			f.logger.Debug("status poll failed", "error", err)
		} else if !bytes.Equal(payload, last) {
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
			last = payload
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Feed) snapshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.interval)
	defer cancel()

	st, err := f.source.Status(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(st)
}
