// Command sign prints a signed bridge request line for manual testing.
// Usage: go run ./tools/sign <session-key> <action> [key=value...]
// Pipe the output to the socket, e.g. `| socat - ABSTRACT-CONNECT:podcast_app_mcp`.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d2verb/podbridge/internal/auth"
	"github.com/d2verb/podbridge/internal/protocol"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: sign <session-key> <action> [key=value...]\n")
		os.Exit(1)
	}

	signer, err := auth.NewWithKey(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse key: %v\n", err)
		os.Exit(1)
	}

	params := make(map[string]string)
	for _, arg := range os.Args[3:] {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid parameter %q\n", arg)
			os.Exit(1)
		}
		params[k] = v
	}

	ts := protocol.Timestamp(strconv.FormatInt(time.Now().UnixMilli(), 10))
	req := protocol.NewRequest(uuid.NewString(), os.Args[2], params, ts)
	signer.Sign(req)

	data, err := json.Marshal(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode request: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
