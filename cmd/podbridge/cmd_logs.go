package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

type LogsCmd struct {
	Follow bool `short:"f" help:"Follow log output (tail -f)"`
}

func (c *LogsCmd) Run() error {
	paths, err := getPaths()
	if err != nil {
		return err
	}

	if _, err := os.Stat(paths.BridgeLog); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nHint: start the bridge with 'podbridge serve'", paths.BridgeLog)
	}

	args := []string{"tail"}
	if c.Follow {
		args = append(args, "-f")
	}
	args = append(args, paths.BridgeLog)

	tailPath, err := exec.LookPath("tail")
	if err != nil {
		return fmt.Errorf("tail command not found in PATH")
	}
	return syscall.Exec(tailPath, args, os.Environ())
}
