package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/d2verb/podbridge/internal/auth"
	"github.com/d2verb/podbridge/internal/protocol"
)

// socketPath returns a short absolute socket path; sun_path is limited to
// about 100 bytes, which t.TempDir can exceed.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pb")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "b.sock")
}

func startServer(t *testing.T, player *stubPlayer) (*Server, *auth.Authenticator) {
	t.Helper()
	d := NewDispatcher(Deps{Player: player, Library: newMemLibrary(), Searcher: &stubSearcher{}})
	srv, err := NewServer(ServerConfig{SocketName: socketPath(t)}, d)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	signer, err := auth.NewWithKey(srv.SessionKey())
	if err != nil {
		t.Fatalf("NewWithKey() error = %v", err)
	}
	return srv, signer
}

// roundTrip writes payload as one line and returns the raw response line.
func roundTrip(t *testing.T, addr string, payload []byte) []byte {
	t.Helper()
	conn, err := net.Dial("unix", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	return line
}

func call(t *testing.T, addr string, req *protocol.Request) *protocol.Response {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return decode(t, roundTrip(t, addr, payload))
}

func decode(t *testing.T, line []byte) *protocol.Response {
	t.Helper()
	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("response %q is not JSON: %v", line, err)
	}
	return &resp
}

func signed(a *auth.Authenticator, id, action string, params map[string]string) *protocol.Request {
	req := protocol.NewRequest(id, action, params, protocol.Timestamp(strconv.FormatInt(time.Now().UnixMilli(), 10)))
	a.Sign(req)
	return req
}

func TestServer_SignedRequest(t *testing.T) {
	srv, signer := startServer(t, &stubPlayer{})

	resp := call(t, srv.Addr(), signed(signer, "req-1", protocol.ActionPausePlayback, nil))

	if resp.ID != "req-1" || resp.Action != protocol.ActionPausePlayback || resp.Status != protocol.StatusSuccess {
		t.Errorf("resp = %+v", resp)
	}
}

func TestServer_SocketIsOwnerOnly(t *testing.T) {
	srv, _ := startServer(t, &stubPlayer{})

	info, err := os.Stat(srv.Addr())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}
}

func TestServer_RejectsBadToken(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*protocol.Request)
	}{
		{"missing token", func(r *protocol.Request) { r.AuthToken = "" }},
		{"wrong token", func(r *protocol.Request) { r.AuthToken = strings.Repeat("0", 64) }},
		{"tampered action", func(r *protocol.Request) { r.Action = protocol.ActionStopPlayback }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &stubPlayer{}
			srv, signer := startServer(t, player)
			req := signed(signer, "bad", protocol.ActionPausePlayback, nil)
			tt.mutate(req)

			resp := call(t, srv.Addr(), req)

			if resp.Status != protocol.StatusUnauthorized || resp.Error != protocol.MsgAuthFailed {
				t.Errorf("resp = %s %q, want UNAUTHORIZED", resp.Status, resp.Error)
			}
			if len(player.calls) != 0 {
				t.Errorf("player called for unauthenticated request: %v", player.calls)
			}
		})
	}
}

func TestServer_RateLimit(t *testing.T) {
	srv, signer := startServer(t, &stubPlayer{})

	for i := 1; i <= 60; i++ {
		resp := call(t, srv.Addr(), signed(signer, "r"+strconv.Itoa(i), protocol.ActionPausePlayback, nil))
		if resp.Status != protocol.StatusSuccess {
			t.Fatalf("request %d: status = %s (%s)", i, resp.Status, resp.Error)
		}
	}

	resp := call(t, srv.Addr(), signed(signer, "r61", protocol.ActionPausePlayback, nil))

	if resp.Status != protocol.StatusError || resp.Error != protocol.MsgRateLimited {
		t.Errorf("61st resp = %s %q, want ERROR %q", resp.Status, resp.Error, protocol.MsgRateLimited)
	}
	if resp.ID != "r61" {
		t.Errorf("ID = %q, want r61", resp.ID)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	srv, _ := startServer(t, &stubPlayer{})

	for _, payload := range []string{"{not json", `{"id": 5}`, `"just a string"`} {
		t.Run(payload, func(t *testing.T) {
			resp := decode(t, roundTrip(t, srv.Addr(), []byte(payload)))

			if resp.Status != protocol.StatusInvalidRequest || resp.Error != protocol.MsgInvalidFormat {
				t.Errorf("resp = %s %q", resp.Status, resp.Error)
			}
			if resp.ID == "" {
				t.Error("malformed response has empty id")
			}
		})
	}
}

func TestServer_IntegerTimestamp(t *testing.T) {
	srv, signer := startServer(t, &stubPlayer{})
	token := signer.Token("n1", protocol.ActionResumePlayback, "1700000000000")
	payload := `{"id":"n1","action":"resumePlayback","timestamp":1700000000000,"authToken":"` + token + `"}`

	resp := decode(t, roundTrip(t, srv.Addr(), []byte(payload)))

	if resp.Status != protocol.StatusSuccess {
		t.Errorf("resp = %s %q, want SUCCESS", resp.Status, resp.Error)
	}
}

func TestServer_OversizedRequest(t *testing.T) {
	srv, _ := startServer(t, &stubPlayer{})
	payload := []byte(`{"id":"` + strings.Repeat("x", MaxRequestSize) + `"}` + "\n")
	conn, err := net.Dial("unix", srv.Addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	// The server may hang up before the tail is written.
	_, _ = conn.Write(payload)
	line, _ := bufio.NewReader(conn).ReadBytes('\n')
	resp := decode(t, line)

	if resp.Status != protocol.StatusInvalidRequest || resp.ID == "" {
		t.Errorf("resp = %s id=%q, want INVALID_REQUEST with an id", resp.Status, resp.ID)
	}
}

func TestServer_StopDropsInFlightResponse(t *testing.T) {
	player := &stubPlayer{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	defer close(player.block)
	srv, signer := startServer(t, player)

	conn, err := net.Dial("unix", srv.Addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	payload, _ := json.Marshal(signed(signer, "slow", protocol.ActionPausePlayback, nil))
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	select {
	case <-player.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, _ := io.ReadAll(conn)
	if len(data) != 0 {
		t.Errorf("received %q after Stop, want nothing", data)
	}
	if _, err := os.Stat(srv.Addr()); !os.IsNotExist(err) {
		t.Errorf("socket file still present after Stop: %v", err)
	}
}

func TestServer_ParentContextCancelStopsGoroutines(t *testing.T) {
	d := NewDispatcher(Deps{Player: &stubPlayer{}, Library: newMemLibrary(), Searcher: &stubSearcher{}})
	srv, err := NewServer(ServerConfig{SocketName: socketPath(t)}, d)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop()

	cancel()

	done := make(chan struct{})
	go func() {
		srv.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server goroutines still running after parent context cancel")
	}
	if _, err := net.Dial("unix", srv.Addr()); err == nil {
		t.Error("Dial() succeeded after parent context cancel")
	}
}

func TestServer_StopWithBackgroundContext(t *testing.T) {
	d := NewDispatcher(Deps{Player: &stubPlayer{}, Library: newMemLibrary(), Searcher: &stubSearcher{}})
	srv, err := NewServer(ServerConfig{SocketName: socketPath(t)}, d)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- srv.Stop() }()

	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}
}

func TestCleanStaleSocket(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if err := cleanStaleSocket(socketPath(t)); err != nil {
			t.Errorf("cleanStaleSocket() error = %v", err)
		}
	})

	t.Run("stale file is removed", func(t *testing.T) {
		path := socketPath(t)
		if err := os.WriteFile(path, nil, 0600); err != nil {
			t.Fatal(err)
		}

		if err := cleanStaleSocket(path); err != nil {
			t.Fatalf("cleanStaleSocket() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stale socket still exists")
		}
	})

	t.Run("live socket is kept", func(t *testing.T) {
		path := socketPath(t)
		l, err := net.Listen("unix", path)
		if err != nil {
			t.Fatal(err)
		}
		defer l.Close()

		if err := cleanStaleSocket(path); err == nil {
			t.Error("cleanStaleSocket() succeeded on a live socket")
		}
	})
}
