package bridge

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// listenPath listens on a filesystem socket restricted to the owner.
func listenPath(path string) (net.Listener, func(), error) {
	if err := cleanStaleSocket(path); err != nil {
		return nil, nil, err
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, nil, err
	}
	if err := os.Chmod(path, 0600); err != nil {
		l.Close()
		return nil, nil, err
	}
	return l, func() { _ = os.Remove(path) }, nil
}

// cleanStaleSocket removes a socket file left behind by a crashed bridge.
// It refuses when another bridge still answers on the path.
func cleanStaleSocket(path string) error {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat socket %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var dialer net.Dialer
	conn, dialErr := dialer.DialContext(ctx, "unix", path)
	if dialErr == nil {
		_ = conn.Close()
		return fmt.Errorf("another bridge is already listening on %s", path)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
