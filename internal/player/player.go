// Package player drives episode playback through an MPD server.
package player

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/d2verb/podbridge/internal/podcast"
)

// DefaultOpTimeout bounds one MPD round trip when the caller's context has no
// deadline.
const DefaultOpTimeout = 3 * time.Second

// EpisodeResolver looks up episodes to play.
type EpisodeResolver interface {
	Episode(ctx context.Context, id int64) (*podcast.Episode, error)
}

// conn is the subset of *mpd.Client the player uses.
type conn interface {
	Clear() error
	Add(uri string) error
	Play(pos int) error
	Pause(pause bool) error
	Stop() error
	SeekCur(d time.Duration, relative bool) error
	Status() (mpd.Attrs, error)
	Close() error
}

// Config holds the MPD connection settings.
type Config struct {
	Network  string // "tcp" or "unix"
	Address  string
	Password string
}

// Player is an MPD-backed playback controller. Each operation dials a
// short-lived connection.
type Player struct {
	cfg      Config
	episodes EpisodeResolver
	dial     func() (conn, error)

	mu      sync.Mutex
	current *podcast.Episode
}

// New creates a player for the MPD server described by cfg.
func New(cfg Config, episodes EpisodeResolver) *Player {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	p := &Player{cfg: cfg, episodes: episodes}
	p.dial = p.dialMPD
	return p
}

func (p *Player) dialMPD() (conn, error) {
	if p.cfg.Password != "" {
		return mpd.DialAuthenticated(p.cfg.Network, p.cfg.Address, p.cfg.Password)
	}
	return mpd.Dial(p.cfg.Network, p.cfg.Address)
}

// do runs fn with a fresh connection, bounded by ctx (or DefaultOpTimeout).
func (p *Player) do(ctx context.Context, op string, fn func(conn) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultOpTimeout)
		defer cancel()
	}

	c, err := p.dial()
	if err != nil {
		return fmt.Errorf("connect to mpd for %s: %w", op, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(c)
	}()

	select {
	case err := <-done:
		c.Close()
		if err != nil {
			return fmt.Errorf("mpd %s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		c.Close()
		return fmt.Errorf("mpd %s: %w", op, ctx.Err())
	}
}

// Play replaces the MPD playlist with the episode audio and starts it at
// startSec.
func (p *Player) Play(ctx context.Context, episodeID, startSec int64) error {
	ep, err := p.episodes.Episode(ctx, episodeID)
	if err != nil {
		return err
	}
	if ep.AudioURL == "" {
		return fmt.Errorf("play episode %d: %w", episodeID, podcast.ErrNoAudio)
	}

	err = p.do(ctx, "play", func(c conn) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(ep.AudioURL); err != nil {
			return err
		}
		if err := c.Play(-1); err != nil {
			return err
		}
		if startSec > 0 {
			return c.SeekCur(time.Duration(startSec)*time.Second, false)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.current = ep
	p.mu.Unlock()
	return nil
}

// Pause pauses playback.
func (p *Player) Pause(ctx context.Context) error {
	return p.do(ctx, "pause", func(c conn) error { return c.Pause(true) })
}

// Resume resumes paused playback.
func (p *Player) Resume(ctx context.Context) error {
	return p.do(ctx, "resume", func(c conn) error { return c.Pause(false) })
}

// Stop stops playback and forgets the current episode.
func (p *Player) Stop(ctx context.Context) error {
	if err := p.do(ctx, "stop", func(c conn) error { return c.Stop() }); err != nil {
		return err
	}
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

// SkipForward moves the playhead forward by seconds.
func (p *Player) SkipForward(ctx context.Context, seconds int64) error {
	return p.skip(ctx, "skip forward", seconds)
}

// SkipBackward moves the playhead backward by seconds.
func (p *Player) SkipBackward(ctx context.Context, seconds int64) error {
	return p.skip(ctx, "skip backward", -seconds)
}

func (p *Player) skip(ctx context.Context, op string, delta int64) error {
	return p.do(ctx, op, func(c conn) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		st := parseStatus(attrs)
		if st.state == "stop" || st.state == "" {
			return podcast.ErrNothingLoaded
		}
		target := clamp(st.elapsed+float64(delta), st.duration)
		return c.SeekCur(secondsToDuration(target), false)
	})
}

// SeekTo moves the playhead to an absolute position.
func (p *Player) SeekTo(ctx context.Context, position int64) error {
	return p.do(ctx, "seek", func(c conn) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		st := parseStatus(attrs)
		if st.state == "stop" || st.state == "" {
			return podcast.ErrNothingLoaded
		}
		return c.SeekCur(secondsToDuration(clamp(float64(position), st.duration)), false)
	})
}

// SetSpeed is not available on MPD.
func (p *Player) SetSpeed(context.Context, float64) error {
	return fmt.Errorf("mpd playback speed: %w", podcast.ErrUnsupported)
}

// Status reports the MPD player state together with the episode last started
// through this player.
func (p *Player) Status(ctx context.Context) (podcast.PlaybackStatus, error) {
	var attrs mpd.Attrs
	err := p.do(ctx, "status", func(c conn) error {
		var err error
		attrs, err = c.Status()
		return err
	})
	if err != nil {
		return podcast.PlaybackStatus{}, err
	}

	st := parseStatus(attrs)
	status := podcast.PlaybackStatus{
		Playing:         st.state == "play",
		PositionSeconds: int64(st.elapsed),
		DurationSeconds: int64(st.duration),
		Speed:           1.0,
	}

	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur != nil && st.state != "stop" {
		status.EpisodeID = cur.ID
		status.EpisodeTitle = cur.Title
		if status.DurationSeconds == 0 {
			status.DurationSeconds = cur.DurationSeconds
		}
	}
	return status, nil
}

type mpdStatus struct {
	state    string
	elapsed  float64
	duration float64
}

// parseStatus reads the fields of an MPD status reply. Older servers only
// report "time" as "elapsed:total".
func parseStatus(attrs mpd.Attrs) mpdStatus {
	st := mpdStatus{state: attrs["state"]}
	st.elapsed, _ = strconv.ParseFloat(attrs["elapsed"], 64)
	st.duration, _ = strconv.ParseFloat(attrs["duration"], 64)

	if t, ok := attrs["time"]; ok && (attrs["elapsed"] == "" || attrs["duration"] == "") {
		if el, total, found := strings.Cut(t, ":"); found {
			if attrs["elapsed"] == "" {
				st.elapsed, _ = strconv.ParseFloat(el, 64)
			}
			if attrs["duration"] == "" {
				st.duration, _ = strconv.ParseFloat(total, 64)
			}
		}
	}
	return st
}

// clamp bounds pos to [0, duration]; an unknown duration leaves the upper
// bound open.
func clamp(pos, duration float64) float64 {
	pos = math.Max(pos, 0)
	if duration > 0 {
		pos = math.Min(pos, duration)
	}
	return pos
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
