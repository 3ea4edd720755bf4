package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/d2verb/podbridge/internal/bridge"
	"github.com/d2verb/podbridge/internal/client"
	"github.com/d2verb/podbridge/internal/config"
	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/ui"
)

// ConnFlags are shared by the commands that talk to a running bridge.
type ConnFlags struct {
	Key     string        `name:"key" env:"PODBRIDGE_SESSION_KEY" required:"" help:"Session key printed by 'serve'"`
	Socket  string        `name:"socket" default:"podcast_app_mcp" help:"Socket name or absolute path"`
	Timeout time.Duration `name:"timeout" default:"35s" help:"Round-trip timeout"`
}

func (f *ConnFlags) client() (*client.Client, string, error) {
	socket := f.Socket
	if socket == "" {
		socket = config.DefaultSocketName
	}
	address := bridge.Address(socket)
	c, err := client.New(address, f.Key)
	if err != nil {
		return nil, "", err
	}
	return c, address, nil
}

type CallCmd struct {
	Action string   `arg:"" predictor:"action" help:"Action name (see 'podbridge actions')"`
	Params []string `arg:"" optional:"" predictor:"param" help:"Parameters as key=value"`

	ConnFlags `embed:""`
}

func (c *CallCmd) Run() error {
	params, err := parseParams(c.Params)
	if err != nil {
		return err
	}
	cl, address, err := c.client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	resp, err := cl.Send(ctx, c.Action, params)
	if err != nil {
		if client.IsConnectError(err) {
			return errBridgeNotRunning(address)
		}
		return err
	}
	ui.PrintResponse(resp)
	return errForStatus(resp.Status)
}

// parseParams turns key=value arguments into a parameter map. Values may
// contain '='; later duplicates win.
func parseParams(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}

type ActionsCmd struct{}

func (c *ActionsCmd) Run() error {
	ui.PrintActions(protocol.SupportedActions())
	return nil
}
