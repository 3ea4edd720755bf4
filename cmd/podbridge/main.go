package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"
)

var (
	version = "dev"
	commit  = "none"
)

type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Run the bridge until interrupted"`
	Call    CallCmd    `cmd:"" help:"Send one signed action to a running bridge"`
	Intent  IntentCmd  `cmd:"" help:"Send a command intent (JSON) to a running bridge"`
	Actions ActionsCmd `cmd:"" help:"List supported actions"`
	Logs    LogsCmd    `cmd:"" help:"Show bridge logs"`
	Version VersionCmd `cmd:"" help:"Show version"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

func main() {
	cli := CLI{}
	parser := kong.Must(&cli,
		kong.Name("podbridge"),
		kong.Description("Local MCP bridge for the podcast app"),
		kong.UsageOnError(),
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("action", newActionPredictor()),
		kongplete.WithPredictor("param", newParamPredictor()),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode reports err on stderr and returns the process exit code.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitError
}
