package main

import (
	"strings"

	"github.com/posener/complete"

	"github.com/d2verb/podbridge/internal/protocol"
)

// actionPredictor completes action names from the registry.
type actionPredictor struct{}

func newActionPredictor() complete.Predictor {
	return actionPredictor{}
}

// Predict implements complete.Predictor interface.
func (actionPredictor) Predict(args complete.Args) []string {
	return filterPrefix(protocol.ActionNames(), args.Last)
}

// paramPredictor completes "name=" for the parameters of the action already
// on the command line.
type paramPredictor struct{}

func newParamPredictor() complete.Predictor {
	return paramPredictor{}
}

// Predict implements complete.Predictor interface.
func (paramPredictor) Predict(args complete.Args) []string {
	spec, ok := actionOnLine(args.Completed)
	if !ok {
		return nil
	}

	used := make(map[string]bool)
	for _, a := range args.Completed {
		if key, _, found := strings.Cut(a, "="); found {
			used[key] = true
		}
	}

	var names []string
	for _, p := range append(append([]string(nil), spec.Required...), spec.Optional...) {
		if !used[p] {
			names = append(names, p+"=")
		}
	}
	return filterPrefix(names, args.Last)
}

func actionOnLine(completed []string) (protocol.ActionSpec, bool) {
	for _, a := range completed {
		if spec, ok := protocol.LookupAction(a); ok {
			return spec, true
		}
	}
	return protocol.ActionSpec{}, false
}

func filterPrefix(candidates []string, partial string) []string {
	results := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(c, partial) {
			results = append(results, c)
		}
	}
	return results
}
