// Package ui provides formatted output utilities for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/d2verb/podbridge/internal/protocol"
)

// Color functions for consistent styling.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Output is the destination for UI output.
// Defaults to os.Stdout but can be overridden for testing.
var Output io.Writer = os.Stdout

// StatusBadge returns a colored response status.
func StatusBadge(status protocol.Status) string {
	switch status {
	case protocol.StatusSuccess:
		return Green("✓ " + string(status))
	case protocol.StatusInvalidRequest, protocol.StatusNotFound:
		return Yellow("✗ " + string(status))
	default:
		return Red("✗ " + string(status))
	}
}

// PrintResponse prints a bridge response: the status line, then data fields
// sorted by key, then list items. Flat list fields are skipped when items
// carry the same records.
func PrintResponse(resp *protocol.Response) {
	fmt.Fprintf(Output, "%s %s %s\n", StatusBadge(resp.Status), Bold(resp.Action), Dim("("+resp.ID+")"))
	if resp.Error != "" {
		fmt.Fprintf(Output, "  %s\n", resp.Error)
		return
	}

	keys := make([]string, 0, len(resp.Data))
	for k := range resp.Data {
		if len(resp.Items) > 0 && isFlatList(resp.Data[k]) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(Output, "  %s %s\n", Cyan(k+":"), resp.Data[k])
	}

	for _, item := range resp.Items {
		fmt.Fprintf(Output, "  %s %s\n", Dim("-"), formatItem(item))
	}
}

func isFlatList(v string) bool {
	return strings.Contains(v, "|")
}

// formatItem renders an item as "id title" followed by the remaining fields.
func formatItem(item map[string]string) string {
	var b strings.Builder
	if id, ok := item["id"]; ok {
		b.WriteString(Cyan(id))
	}
	if title, ok := item["title"]; ok {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(title)
	}

	rest := make([]string, 0, len(item))
	for k := range item {
		if k != "id" && k != "title" {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Dim(k + "=" + item[k]))
	}
	return b.String()
}

// PrintActions prints the action registry.
func PrintActions(specs []protocol.ActionSpec) {
	fmt.Fprintln(Output, Bold("Available actions:"))
	for _, s := range specs {
		var params []string
		for _, p := range s.Required {
			params = append(params, Yellow(p))
		}
		for _, p := range s.Optional {
			params = append(params, Dim("["+p+"]"))
		}
		fmt.Fprintf(Output, "  %s %s\n", Cyan(s.Name), strings.Join(params, " "))
		if s.Description != "" {
			fmt.Fprintf(Output, "      %s\n", Dim(s.Description))
		}
	}
}

// PrintSuccess prints a success message with green checkmark.
func PrintSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", Green("✓"), message)
}

// PrintError prints an error message with red X.
func PrintError(message string) {
	fmt.Fprintf(Output, "%s %s\n", Red("✗"), message)
}

// PrintWarning prints a warning message with yellow exclamation.
func PrintWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", Yellow("⚠"), message)
}

// PrintInfo prints an info message with blue dot.
func PrintInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", Blue("•"), message)
}
