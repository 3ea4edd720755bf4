package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/d2verb/podbridge/internal/podcast"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEpisodes(t *testing.T, s *Store, podcastID int64, eps ...podcast.Episode) {
	t.Helper()
	for i := range eps {
		eps[i].PodcastID = podcastID
	}
	if err := s.SaveEpisodes(context.Background(), eps); err != nil {
		t.Fatalf("SaveEpisodes() error = %v", err)
	}
}

func TestOpen_IsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := s1.SavePodcast(ctx, podcast.Podcast{ID: 1, Title: "Kept"}); err != nil {
		t.Fatalf("SavePodcast() error = %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()

	p, err := s2.Podcast(ctx, 1)
	if err != nil {
		t.Fatalf("Podcast() after reopen error = %v", err)
	}
	if p.Title != "Kept" {
		t.Errorf("Title = %q, want %q", p.Title, "Kept")
	}
}

func TestPodcast_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Podcast(context.Background(), 99)
	if !errors.Is(err, podcast.ErrNotFound) {
		t.Errorf("Podcast(99) error = %v, want ErrNotFound", err)
	}
}

func TestSubscriptions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Arrange
	for _, p := range []podcast.Podcast{
		{ID: 1, Title: "Zeta Talk", Subscribed: true},
		{ID: 2, Title: "alpha show", Subscribed: true},
		{ID: 3, Title: "Not Mine"},
	} {
		if err := s.SavePodcast(ctx, p); err != nil {
			t.Fatalf("SavePodcast(%d) error = %v", p.ID, err)
		}
	}

	// Act
	subs, err := s.Subscribed(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Subscribed() error = %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("len(Subscribed()) = %d, want 2", len(subs))
	}
	if subs[0].Title != "alpha show" || subs[1].Title != "Zeta Talk" {
		t.Errorf("order = [%q %q], want case-insensitive title order", subs[0].Title, subs[1].Title)
	}

	if err := s.SetSubscribed(ctx, 1, false); err != nil {
		t.Fatalf("SetSubscribed() error = %v", err)
	}
	p, _ := s.Podcast(ctx, 1)
	if p.Subscribed {
		t.Error("podcast 1 still subscribed")
	}

	if err := s.SetSubscribed(ctx, 42, true); !errors.Is(err, podcast.ErrNotFound) {
		t.Errorf("SetSubscribed(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestEpisode_RoundTripsFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seedEpisodes(t, s, 7, podcast.Episode{
		ID:              100,
		Title:           "Pilot",
		AudioURL:        "https://example.com/100.mp3",
		PublishedAt:     published,
		DurationSeconds: 1800,
		TranscriptURL:   "https://example.com/100.vtt",
		TranscriptType:  "text/vtt",
		ChaptersURL:     "https://example.com/100.json",
		Chapters:        []podcast.Chapter{{StartSeconds: 0, Title: "Intro"}, {StartSeconds: 60, Title: "Main"}},
	})

	e, err := s.Episode(ctx, 100)
	if err != nil {
		t.Fatalf("Episode() error = %v", err)
	}
	if e.PodcastID != 7 || e.Title != "Pilot" || e.DurationSeconds != 1800 {
		t.Errorf("episode = %+v", e)
	}
	if !e.PublishedAt.Equal(published) {
		t.Errorf("PublishedAt = %v, want %v", e.PublishedAt, published)
	}
	if e.TranscriptType != "text/vtt" || e.Transcript != "" {
		t.Errorf("transcript fields = %q/%q", e.TranscriptType, e.Transcript)
	}
	if len(e.Chapters) != 2 || e.Chapters[1].Title != "Main" {
		t.Errorf("Chapters = %+v", e.Chapters)
	}

	if _, err := s.Episode(ctx, 101); !errors.Is(err, podcast.ErrNotFound) {
		t.Errorf("Episode(101) error = %v, want ErrNotFound", err)
	}
}

func TestSaveEpisodes_PreservesPlayed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedEpisodes(t, s, 1, podcast.Episode{ID: 1, Title: "old title"})
	if err := s.SetPlayed(ctx, 1, true); err != nil {
		t.Fatalf("SetPlayed() error = %v", err)
	}

	seedEpisodes(t, s, 1, podcast.Episode{ID: 1, Title: "new title"})

	e, _ := s.Episode(ctx, 1)
	if !e.Played {
		t.Error("re-saving an episode cleared its played flag")
	}
	if e.Title != "new title" {
		t.Errorf("Title = %q, want %q", e.Title, "new title")
	}
}

func TestNextUnplayed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seedEpisodes(t, s, 5,
		podcast.Episode{ID: 11, Title: "second", PublishedAt: base.Add(48 * time.Hour)},
		podcast.Episode{ID: 10, Title: "first", PublishedAt: base.Add(24 * time.Hour)},
		podcast.Episode{ID: 12, Title: "third", PublishedAt: base.Add(72 * time.Hour)},
	)

	e, err := s.NextUnplayed(ctx, 5)
	if err != nil {
		t.Fatalf("NextUnplayed() error = %v", err)
	}
	if e.ID != 10 {
		t.Errorf("NextUnplayed() = %d, want 10", e.ID)
	}

	for _, id := range []int64{10, 11, 12} {
		s.SetPlayed(ctx, id, true)
	}
	if _, err := s.NextUnplayed(ctx, 5); !errors.Is(err, podcast.ErrNotFound) {
		t.Errorf("NextUnplayed() with all played error = %v, want ErrNotFound", err)
	}

	if err := s.SetPlayed(ctx, 11, false); err != nil {
		t.Fatalf("SetPlayed(false) error = %v", err)
	}
	e, _ = s.NextUnplayed(ctx, 5)
	if e == nil || e.ID != 11 {
		t.Errorf("NextUnplayed() after unmark = %+v, want 11", e)
	}
}

func TestSetPlayed_UnknownEpisodeIsNotAnError(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetPlayed(context.Background(), 12345, true); err != nil {
		t.Errorf("SetPlayed(unknown) error = %v, want nil", err)
	}
}

func TestQueue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedEpisodes(t, s, 1,
		podcast.Episode{ID: 1, Title: "one"},
		podcast.Episode{ID: 2, Title: "two"},
		podcast.Episode{ID: 3, Title: "three"},
	)

	t.Run("enqueue keeps order and ignores duplicates", func(t *testing.T) {
		for _, id := range []int64{2, 1, 3, 2} {
			if _, err := s.Enqueue(ctx, id); err != nil {
				t.Fatalf("Enqueue(%d) error = %v", id, err)
			}
		}
		q, err := s.Queue(ctx)
		if err != nil {
			t.Fatalf("Queue() error = %v", err)
		}
		got := []int64{}
		for _, e := range q {
			got = append(got, e.ID)
		}
		if len(got) != 3 || got[0] != 2 || got[1] != 1 || got[2] != 3 {
			t.Errorf("queue = %v, want [2 1 3]", got)
		}
	})

	t.Run("enqueue unknown episode", func(t *testing.T) {
		if _, err := s.Enqueue(ctx, 99); !errors.Is(err, podcast.ErrNotFound) {
			t.Errorf("Enqueue(99) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("pop returns head", func(t *testing.T) {
		e, err := s.PopQueue(ctx)
		if err != nil {
			t.Fatalf("PopQueue() error = %v", err)
		}
		if e.ID != 2 {
			t.Errorf("PopQueue() = %d, want 2", e.ID)
		}
	})

	t.Run("dequeue", func(t *testing.T) {
		if err := s.Dequeue(ctx, 3); err != nil {
			t.Fatalf("Dequeue(3) error = %v", err)
		}
		if err := s.Dequeue(ctx, 3); !errors.Is(err, podcast.ErrNotFound) {
			t.Errorf("second Dequeue(3) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("clear then pop", func(t *testing.T) {
		if err := s.ClearQueue(ctx); err != nil {
			t.Fatalf("ClearQueue() error = %v", err)
		}
		if _, err := s.PopQueue(ctx); !errors.Is(err, podcast.ErrNotFound) {
			t.Errorf("PopQueue() on empty queue error = %v, want ErrNotFound", err)
		}
	})
}
