package bridge

import (
	"context"
	"sync"

	"github.com/d2verb/podbridge/internal/podcast"
	"github.com/d2verb/podbridge/internal/protocol"
)

type stubPlayer struct {
	mu       sync.Mutex
	calls    []string
	playedID int64
	startSec int64
	skipped  int64
	speed    float64
	status   podcast.PlaybackStatus
	err      error
	block    chan struct{} // when set, every call waits for it to close
	entered  chan struct{} // signalled before waiting on block
	panicMsg string
}

func (p *stubPlayer) call(ctx context.Context, name string) error {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.block != nil {
		if p.entered != nil {
			p.entered <- struct{}{}
		}
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	p.calls = append(p.calls, name)
	p.mu.Unlock()
	return p.err
}

func (p *stubPlayer) Play(ctx context.Context, episodeID, startSec int64) error {
	if err := p.call(ctx, "play"); err != nil {
		return err
	}
	p.mu.Lock()
	p.playedID, p.startSec = episodeID, startSec
	p.mu.Unlock()
	return nil
}
func (p *stubPlayer) Pause(ctx context.Context) error  { return p.call(ctx, "pause") }
func (p *stubPlayer) Resume(ctx context.Context) error { return p.call(ctx, "resume") }
func (p *stubPlayer) Stop(ctx context.Context) error   { return p.call(ctx, "stop") }
func (p *stubPlayer) SkipForward(ctx context.Context, seconds int64) error {
	p.skipped = seconds
	return p.call(ctx, "skipForward")
}
func (p *stubPlayer) SkipBackward(ctx context.Context, seconds int64) error {
	p.skipped = -seconds
	return p.call(ctx, "skipBackward")
}
func (p *stubPlayer) SeekTo(ctx context.Context, position int64) error {
	p.skipped = position
	return p.call(ctx, "seekTo")
}
func (p *stubPlayer) SetSpeed(ctx context.Context, speed float64) error {
	p.speed = speed
	return p.call(ctx, "setSpeed")
}
func (p *stubPlayer) Status(ctx context.Context) (podcast.PlaybackStatus, error) {
	if err := p.call(ctx, "status"); err != nil {
		return podcast.PlaybackStatus{}, err
	}
	return p.status, nil
}

// memLibrary is an in-memory Library.
type memLibrary struct {
	mu       sync.Mutex
	podcasts map[int64]podcast.Podcast
	episodes map[int64]podcast.Episode
	queue    []int64
	err      error
}

func newMemLibrary() *memLibrary {
	return &memLibrary{
		podcasts: map[int64]podcast.Podcast{},
		episodes: map[int64]podcast.Episode{},
	}
}

func (l *memLibrary) Podcast(_ context.Context, id int64) (*podcast.Podcast, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	p, ok := l.podcasts[id]
	if !ok {
		return nil, podcast.ErrNotFound
	}
	return &p, nil
}

func (l *memLibrary) Subscribed(context.Context) ([]podcast.Podcast, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []podcast.Podcast
	for _, p := range l.podcasts {
		if p.Subscribed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l *memLibrary) SavePodcast(_ context.Context, p podcast.Podcast) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.podcasts[p.ID] = p
	return nil
}

func (l *memLibrary) SetSubscribed(_ context.Context, id int64, subscribed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.podcasts[id]
	if !ok {
		return podcast.ErrNotFound
	}
	p.Subscribed = subscribed
	l.podcasts[id] = p
	return nil
}

func (l *memLibrary) Episode(_ context.Context, id int64) (*podcast.Episode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.episodes[id]
	if !ok {
		return nil, podcast.ErrNotFound
	}
	return &e, nil
}

func (l *memLibrary) SaveEpisodes(_ context.Context, episodes []podcast.Episode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range episodes {
		l.episodes[e.ID] = e
	}
	return nil
}

func (l *memLibrary) NextUnplayed(_ context.Context, podcastID int64) (*podcast.Episode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var best *podcast.Episode
	for _, e := range l.episodes {
		if e.PodcastID != podcastID || e.Played {
			continue
		}
		if best == nil || e.PublishedAt.Before(best.PublishedAt) {
			e := e
			best = &e
		}
	}
	if best == nil {
		return nil, podcast.ErrNotFound
	}
	return best, nil
}

func (l *memLibrary) SetPlayed(_ context.Context, id int64, played bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.episodes[id]; ok {
		e.Played = played
		l.episodes[id] = e
	}
	return nil
}

func (l *memLibrary) Queue(context.Context) ([]podcast.Episode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]podcast.Episode, 0, len(l.queue))
	for _, id := range l.queue {
		out = append(out, l.episodes[id])
	}
	return out, nil
}

func (l *memLibrary) Enqueue(_ context.Context, id int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.episodes[id]; !ok {
		return 0, podcast.ErrNotFound
	}
	for _, q := range l.queue {
		if q == id {
			return len(l.queue), nil
		}
	}
	l.queue = append(l.queue, id)
	return len(l.queue), nil
}

func (l *memLibrary) Dequeue(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, q := range l.queue {
		if q == id {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return nil
		}
	}
	return podcast.ErrNotFound
}

func (l *memLibrary) ClearQueue(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = nil
	return nil
}

func (l *memLibrary) PopQueue(context.Context) (*podcast.Episode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, podcast.ErrNotFound
	}
	e := l.episodes[l.queue[0]]
	l.queue = l.queue[1:]
	return &e, nil
}

type stubSearcher struct {
	results  []podcast.Podcast
	feeds    map[int64]podcast.Podcast
	episodes []podcast.Episode
	err      error
	lastTerm string
	lastMax  int
}

func (s *stubSearcher) Search(_ context.Context, term string, max int) ([]podcast.Podcast, error) {
	s.lastTerm, s.lastMax = term, max
	return s.results, s.err
}

func (s *stubSearcher) PodcastByFeedID(_ context.Context, id int64) (*podcast.Podcast, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.feeds[id]
	if !ok {
		return nil, podcast.ErrNotFound
	}
	return &p, nil
}

func (s *stubSearcher) EpisodesByFeedID(_ context.Context, _ int64, _ int) ([]podcast.Episode, error) {
	return s.episodes, s.err
}

type fixture struct {
	player   *stubPlayer
	library  *memLibrary
	searcher *stubSearcher
	d        *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		player:   &stubPlayer{},
		library:  newMemLibrary(),
		searcher: &stubSearcher{},
	}
	f.d = NewDispatcher(Deps{Player: f.player, Library: f.library, Searcher: f.searcher})
	return f
}

func request(id, action string, params map[string]string) *protocol.Request {
	return protocol.NewRequest(id, action, params, "1700000000000")
}
