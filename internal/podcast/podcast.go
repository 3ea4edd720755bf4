// Package podcast defines the domain types shared by the bridge and its
// collaborators.
package podcast

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the referenced podcast or episode does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported indicates the backend cannot perform the operation.
	ErrUnsupported = errors.New("operation not supported")
	// ErrNothingLoaded indicates a playback command needs a loaded episode.
	ErrNothingLoaded = errors.New("no episode loaded")
	// ErrNoAudio indicates an episode has no playable enclosure.
	ErrNoAudio = errors.New("episode has no audio url")
)

// Podcast is a feed known to the library or returned by a directory search.
type Podcast struct {
	ID          int64
	Title       string
	Author      string
	Description string
	FeedURL     string
	ImageURL    string
	Subscribed  bool
}

// Episode is one item of a podcast feed.
type Episode struct {
	ID              int64
	PodcastID       int64
	Title           string
	Description     string
	AudioURL        string
	PublishedAt     time.Time
	DurationSeconds int64
	Played          bool

	TranscriptURL  string
	TranscriptType string
	Transcript     string // cached transcript text, if downloaded

	ChaptersURL string
	Chapters    []Chapter
}

// Chapter is a Podcast 2.0 chapter marker.
type Chapter struct {
	StartSeconds int64  `json:"startTime"`
	Title        string `json:"title"`
}

// PlaybackStatus is a snapshot of the player state.
type PlaybackStatus struct {
	Playing         bool    `json:"isPlaying"`
	PositionSeconds int64   `json:"positionSeconds"`
	DurationSeconds int64   `json:"durationSeconds"`
	Speed           float64 `json:"playbackSpeed"`
	EpisodeID       int64   `json:"currentEpisodeId,omitempty"`
	EpisodeTitle    string  `json:"currentEpisodeTitle,omitempty"`
}

// HasEpisode reports whether an episode is loaded.
func (s PlaybackStatus) HasEpisode() bool {
	return s.EpisodeID != 0
}
