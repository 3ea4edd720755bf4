package bridge

import (
	"context"

	"github.com/d2verb/podbridge/internal/podcast"
)

// Player controls playback.
type Player interface {
	Play(ctx context.Context, episodeID, startSec int64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	SkipForward(ctx context.Context, seconds int64) error
	SkipBackward(ctx context.Context, seconds int64) error
	SeekTo(ctx context.Context, position int64) error
	SetSpeed(ctx context.Context, speed float64) error
	Status(ctx context.Context) (podcast.PlaybackStatus, error)
}

// Library stores podcasts, episodes and the queue.
type Library interface {
	Podcast(ctx context.Context, id int64) (*podcast.Podcast, error)
	Subscribed(ctx context.Context) ([]podcast.Podcast, error)
	SavePodcast(ctx context.Context, p podcast.Podcast) error
	SetSubscribed(ctx context.Context, id int64, subscribed bool) error

	Episode(ctx context.Context, id int64) (*podcast.Episode, error)
	SaveEpisodes(ctx context.Context, episodes []podcast.Episode) error
	NextUnplayed(ctx context.Context, podcastID int64) (*podcast.Episode, error)
	SetPlayed(ctx context.Context, episodeID int64, played bool) error

	Queue(ctx context.Context) ([]podcast.Episode, error)
	Enqueue(ctx context.Context, episodeID int64) (int, error)
	Dequeue(ctx context.Context, episodeID int64) error
	ClearQueue(ctx context.Context) error
	PopQueue(ctx context.Context) (*podcast.Episode, error)
}

// Searcher queries a remote podcast directory.
type Searcher interface {
	Search(ctx context.Context, term string, max int) ([]podcast.Podcast, error)
	PodcastByFeedID(ctx context.Context, id int64) (*podcast.Podcast, error)
	EpisodesByFeedID(ctx context.Context, id int64, max int) ([]podcast.Episode, error)
}
