// Package client provides a client for sending signed commands to the bridge.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d2verb/podbridge/internal/auth"
	"github.com/d2verb/podbridge/internal/intent"
	"github.com/d2verb/podbridge/internal/protocol"
)

// DefaultTimeout bounds one round trip when ctx has no deadline.
const DefaultTimeout = 35 * time.Second

// ConnectError reports that the bridge socket could not be reached.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to bridge: %v", e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsConnectError reports whether err is a *ConnectError.
func IsConnectError(err error) bool {
	var connErr *ConnectError
	return errors.As(err, &connErr)
}

// Client communicates with the bridge via its unix socket.
type Client struct {
	address string
	signer  *auth.Authenticator
	now     func() time.Time
}

// New creates a client for the socket at address, signing with the exported
// session key.
func New(address, sessionKey string) (*Client, error) {
	signer, err := auth.NewWithKey(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Client{address: address, signer: signer, now: time.Now}, nil
}

// Send builds, signs and sends a request for action.
func (c *Client) Send(ctx context.Context, action string, params map[string]string) (*protocol.Response, error) {
	ts := protocol.Timestamp(strconv.FormatInt(c.now().UnixMilli(), 10))
	req := protocol.NewRequest(uuid.NewString(), action, params, ts)
	c.signer.Sign(req)
	return c.Do(ctx, req)
}

// SendIntent sends the bridge action an intent maps to.
func (c *Client) SendIntent(ctx context.Context, in intent.Intent) (*protocol.Response, error) {
	cmd, err := intent.ToCommand(in)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, cmd.Action, cmd.Params)
}

// Do sends req as is and returns the response.
func (c *Client) Do(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.address)
	if err != nil {
		return nil, &ConnectError{Address: c.address, Err: err}
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}
