package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/d2verb/podbridge/internal/podcast"
	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/validate"
)

// DefaultRequestTimeout bounds one handler invocation.
const DefaultRequestTimeout = 30 * time.Second

// Result is what a handler produces on success.
type Result struct {
	Data  map[string]string
	Items []map[string]string
}

// HandlerFunc executes one action. Returned errors are classified by the
// dispatcher.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*Result, error)

// Deps are the collaborators the handlers call.
type Deps struct {
	Player   Player
	Library  Library
	Searcher Searcher
	Logger   *slog.Logger

	// RequestTimeout bounds each handler. Zero means DefaultRequestTimeout;
	// a negative value disables the bound.
	RequestTimeout time.Duration
}

// Dispatcher routes requests to handlers and turns every outcome into a
// response.
type Dispatcher struct {
	player   Player
	library  Library
	searcher Searcher
	logger   *slog.Logger
	timeout  time.Duration

	handlers map[string]HandlerFunc
}

// NewDispatcher creates a dispatcher with a handler for every registered
// action.
func NewDispatcher(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := deps.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	d := &Dispatcher{
		player:   deps.Player,
		library:  deps.Library,
		searcher: deps.Searcher,
		logger:   logger,
		timeout:  timeout,
	}
	d.handlers = map[string]HandlerFunc{
		protocol.ActionPlayEpisode:       d.handlePlayEpisode,
		protocol.ActionPausePlayback:     d.handlePause,
		protocol.ActionResumePlayback:    d.handleResume,
		protocol.ActionStopPlayback:      d.handleStop,
		protocol.ActionSkipForward:       d.handleSkipForward,
		protocol.ActionSkipBackward:      d.handleSkipBackward,
		protocol.ActionSeekTo:            d.handleSeekTo,
		protocol.ActionSetPlaybackSpeed:  d.handleSetSpeed,
		protocol.ActionGetPlaybackStatus: d.handleStatus,

		protocol.ActionSearchPodcasts:         d.handleSearch,
		protocol.ActionGetSubscribedPodcasts:  d.handleSubscribed,
		protocol.ActionAddPodcast:             d.handleAddPodcast,
		protocol.ActionRemovePodcast:          d.handleRemovePodcast,
		protocol.ActionGetNextUnplayedEpisode: d.handleNextUnplayed,
		protocol.ActionMarkAsPlayed:           d.handleMarkPlayed,
		protocol.ActionMarkAsUnplayed:         d.handleMarkUnplayed,
		protocol.ActionGetTranscript:          d.handleTranscript,
		protocol.ActionGetChapters:            d.handleChapters,

		protocol.ActionGetPlaybackQueue: d.handleQueue,
		protocol.ActionAddToQueue:       d.handleAddToQueue,
		protocol.ActionRemoveFromQueue:  d.handleRemoveFromQueue,
		protocol.ActionClearQueue:       d.handleClearQueue,
		protocol.ActionPlayNextInQueue:  d.handlePlayNext,
	}
	return d
}

// Dispatch runs req and returns exactly one response. It never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	spec, ok := protocol.LookupAction(req.Action)
	handler, hasHandler := d.handlers[req.Action]
	if !ok || !hasHandler {
		return protocol.NewUnknownActionResponse(req)
	}

	if missing := spec.MissingParam(req); missing != "" {
		return protocol.NewInvalidRequestResponse(req, "Missing required parameter: "+missing)
	}

	result, err := d.run(ctx, handler, req)
	if err != nil {
		return d.errorResponse(req, err)
	}

	resp := protocol.NewSuccessResponse(req, result.Data)
	resp.Items = result.Items
	return resp
}

// run invokes handler with the per-request bound and converts panics into
// errors.
func (d *Dispatcher) run(ctx context.Context, handler HandlerFunc, req *protocol.Request) (*Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("handler panicked", "action", req.Action, "id", req.ID, "panic", r)
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		result, err := handler(ctx, req)
		if err == nil && result == nil {
			result = &Result{}
		}
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) errorResponse(req *protocol.Request, err error) *protocol.Response {
	var validationErr *validate.Error
	var opErr *OperationError

	switch {
	case errors.As(err, &validationErr):
		return protocol.NewInvalidRequestResponse(req, validationErr.Message)
	case errors.As(err, &opErr):
		return protocol.NewErrorResponse(req, protocol.StatusError, opErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.NewErrorResponse(req, protocol.StatusError, protocol.MsgTimedOut)
	case errors.Is(err, context.Canceled):
		return protocol.NewErrorResponse(req, protocol.StatusError, "Request cancelled")
	case errors.Is(err, podcast.ErrNotFound):
		return protocol.NewErrorResponse(req, protocol.StatusNotFound, err.Error())
	case errors.Is(err, podcast.ErrUnsupported), errors.Is(err, podcast.ErrNothingLoaded),
		errors.Is(err, podcast.ErrNoAudio):
		return protocol.NewErrorResponse(req, protocol.StatusError, err.Error())
	default:
		d.logger.Error("handler failed", "action", req.Action, "id", req.ID, "error", err)
		return protocol.NewErrorResponse(req, protocol.StatusInternalError, err.Error())
	}
}

// Actions returns the names the dispatcher has handlers for.
func (d *Dispatcher) Actions() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}
