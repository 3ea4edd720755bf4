// Package intent models the structured commands produced by an offline voice
// parser and maps them onto bridge actions.
package intent

import (
	"errors"
	"math"
)

// Kind identifies an intent variant.
type Kind int

// Intent kinds
const (
	KindUnrecognized Kind = iota
	KindPlay
	KindPause
	KindResume
	KindStop
	KindSkipForward
	KindSkipBackward
	KindSeekTo
	KindNextEpisode
	KindPreviousEpisode
	KindSetSpeed
	KindSearch
	KindSubscribe
	KindUnsubscribe
	KindMarkPlayed
	KindMarkUnplayed
	KindStatusQuery
	KindQueueAdd
	KindQueueClear
	KindAmbiguous
)

var kindNames = map[Kind]string{
	KindUnrecognized:    "unrecognized",
	KindPlay:            "play",
	KindPause:           "pause",
	KindResume:          "resume",
	KindStop:            "stop",
	KindSkipForward:     "skipForward",
	KindSkipBackward:    "skipBackward",
	KindSeekTo:          "seekTo",
	KindNextEpisode:     "nextEpisode",
	KindPreviousEpisode: "previousEpisode",
	KindSetSpeed:        "setSpeed",
	KindSearch:          "search",
	KindSubscribe:       "subscribe",
	KindUnsubscribe:     "unsubscribe",
	KindMarkPlayed:      "markPlayed",
	KindMarkUnplayed:    "markUnplayed",
	KindStatusQuery:     "statusQuery",
	KindQueueAdd:        "queueAdd",
	KindQueueClear:      "queueClear",
	KindAmbiguous:       "ambiguous",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Fixed confidence values.
const (
	UnrecognizedConfidence = 0.0
	AmbiguousConfidence    = 0.5
)

// ErrNoCandidates is returned when building an Ambiguous intent without
// candidates.
var ErrNoCandidates = errors.New("ambiguous intent needs at least one candidate")

// Intent is a parsed voice command. The set of implementations is closed.
type Intent interface {
	Kind() Kind
	Confidence() float64
	RawText() string
	isIntent()
}

// Meta carries the fields shared by scored intents.
type Meta struct {
	confidence float64
	raw        string
}

// NewMeta clamps confidence into [0, 1]; NaN becomes 0.
func NewMeta(confidence float64, raw string) Meta {
	switch {
	case math.IsNaN(confidence) || confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return Meta{confidence: confidence, raw: raw}
}

// Confidence returns the parser's confidence in [0, 1].
func (m Meta) Confidence() float64 { return m.confidence }

// RawText returns the utterance the intent was parsed from.
func (m Meta) RawText() string { return m.raw }

func (Meta) isIntent() {}

// Play starts an episode. Without an episode id the query names what to look
// for, and with neither it resumes playback.
type Play struct {
	Meta
	EpisodeID    int64
	StartSeconds int64
	Query        string
}

// Pause pauses playback.
type Pause struct{ Meta }

// Resume resumes playback.
type Resume struct{ Meta }

// Stop stops playback.
type Stop struct{ Meta }

// SkipForward skips ahead; zero Seconds means the player default.
type SkipForward struct {
	Meta
	Seconds int64
}

// SkipBackward skips back; zero Seconds means the player default.
type SkipBackward struct {
	Meta
	Seconds int64
}

// SeekTo jumps to an absolute position.
type SeekTo struct {
	Meta
	Seconds int64
}

// NextEpisode plays the next queued episode.
type NextEpisode struct{ Meta }

// PreviousEpisode asks for the previously played episode.
type PreviousEpisode struct{ Meta }

// SetSpeed changes the playback rate.
type SetSpeed struct {
	Meta
	Speed float64
}

// Search looks up podcasts.
type Search struct {
	Meta
	Query string
}

// Subscribe adds a podcast to the library.
type Subscribe struct {
	Meta
	PodcastID int64
}

// Unsubscribe removes a podcast from the library.
type Unsubscribe struct {
	Meta
	PodcastID int64
}

// MarkPlayed marks an episode as played.
type MarkPlayed struct {
	Meta
	EpisodeID int64
}

// MarkUnplayed marks an episode as unplayed.
type MarkUnplayed struct {
	Meta
	EpisodeID int64
}

// Topic selects what a StatusQuery asks about.
type Topic int

// Status query topics
const (
	TopicNowPlaying Topic = iota
	TopicSubscriptions
	TopicQueue
)

// StatusQuery asks about the player or the library.
type StatusQuery struct {
	Meta
	Topic Topic
}

// QueueAdd appends an episode to the queue.
type QueueAdd struct {
	Meta
	EpisodeID int64
}

// QueueClear empties the queue.
type QueueClear struct{ Meta }

// Unrecognized is an utterance the parser could not interpret. Its confidence
// is always zero.
type Unrecognized struct {
	raw string
}

// NewUnrecognized creates an Unrecognized intent.
func NewUnrecognized(raw string) Unrecognized {
	return Unrecognized{raw: raw}
}

func (Unrecognized) Kind() Kind { return KindUnrecognized }
func (Unrecognized) Confidence() float64 { return UnrecognizedConfidence }
func (u Unrecognized) RawText() string { return u.raw }
func (Unrecognized) isIntent() {}

// Ambiguous holds several plausible readings. Its confidence is always 0.5.
type Ambiguous struct {
	raw        string
	candidates []Intent
}

// NewAmbiguous creates an Ambiguous intent over at least one candidate.
func NewAmbiguous(raw string, candidates ...Intent) (Ambiguous, error) {
	if len(candidates) == 0 {
		return Ambiguous{}, ErrNoCandidates
	}
	return Ambiguous{raw: raw, candidates: append([]Intent(nil), candidates...)}, nil
}

func (Ambiguous) Kind() Kind { return KindAmbiguous }
func (Ambiguous) Confidence() float64 { return AmbiguousConfidence }
func (a Ambiguous) RawText() string { return a.raw }
func (Ambiguous) isIntent() {}

// Candidates returns a copy of the candidate readings.
func (a Ambiguous) Candidates() []Intent {
	return append([]Intent(nil), a.candidates...)
}

func (Play) Kind() Kind { return KindPlay }
func (Pause) Kind() Kind { return KindPause }
func (Resume) Kind() Kind { return KindResume }
func (Stop) Kind() Kind { return KindStop }
func (SkipForward) Kind() Kind { return KindSkipForward }
func (SkipBackward) Kind() Kind { return KindSkipBackward }
func (SeekTo) Kind() Kind { return KindSeekTo }
func (NextEpisode) Kind() Kind { return KindNextEpisode }
func (PreviousEpisode) Kind() Kind { return KindPreviousEpisode }
func (SetSpeed) Kind() Kind { return KindSetSpeed }
func (Search) Kind() Kind { return KindSearch }
func (Subscribe) Kind() Kind { return KindSubscribe }
func (Unsubscribe) Kind() Kind { return KindUnsubscribe }
func (MarkPlayed) Kind() Kind { return KindMarkPlayed }
func (MarkUnplayed) Kind() Kind { return KindMarkUnplayed }
func (StatusQuery) Kind() Kind { return KindStatusQuery }
func (QueueAdd) Kind() Kind { return KindQueueAdd }
func (QueueClear) Kind() Kind { return KindQueueClear }
