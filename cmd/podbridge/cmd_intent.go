package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/d2verb/podbridge/internal/client"
	"github.com/d2verb/podbridge/internal/intent"
	"github.com/d2verb/podbridge/internal/ui"
)

// stdin is the input source for "-". Can be replaced for testing.
var stdin io.Reader = os.Stdin

type IntentCmd struct {
	JSON string `arg:"" name:"json" help:"Intent as JSON, or - to read it from stdin"`

	ConnFlags `embed:""`
}

func (c *IntentCmd) Run() error {
	data := []byte(c.JSON)
	if c.JSON == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return fmt.Errorf("read intent: %w", err)
		}
	}

	in, err := intent.Decode(data)
	if err != nil {
		return err
	}
	cl, address, err := c.client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	resp, err := cl.SendIntent(ctx, in)
	switch {
	case errors.Is(err, intent.ErrNoAction):
		return errNoAction(in.Kind().String())
	case client.IsConnectError(err):
		return errBridgeNotRunning(address)
	case err != nil:
		return err
	}
	ui.PrintResponse(resp)
	return errForStatus(resp.Status)
}
