// Package library stores podcasts, episodes and the playback queue in SQLite.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/d2verb/podbridge/internal/podcast"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed podcast library.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, applies production pragmas (WAL, busy
// timeout) and creates the schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", p, path, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const podcastColumns = `id, title, author, description, feed_url, image_url, subscribed`

func scanPodcast(row interface{ Scan(...any) error }) (*podcast.Podcast, error) {
	var p podcast.Podcast
	var subscribed int
	if err := row.Scan(&p.ID, &p.Title, &p.Author, &p.Description, &p.FeedURL, &p.ImageURL, &subscribed); err != nil {
		return nil, err
	}
	p.Subscribed = subscribed != 0
	return &p, nil
}

// Podcast returns the podcast with id, or podcast.ErrNotFound.
func (s *Store) Podcast(ctx context.Context, id int64) (*podcast.Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE id = ?`, id)
	p, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("podcast %d: %w", id, podcast.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query podcast %d: %w", id, err)
	}
	return p, nil
}

// Subscribed returns all subscribed podcasts ordered by title.
func (s *Store) Subscribed(ctx context.Context) ([]podcast.Podcast, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+podcastColumns+` FROM podcasts WHERE subscribed = 1 ORDER BY title COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("query subscribed podcasts: %w", err)
	}
	defer rows.Close()

	podcasts := []podcast.Podcast{}
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		podcasts = append(podcasts, *p)
	}
	return podcasts, rows.Err()
}

// SavePodcast inserts p or updates its metadata and subscription flag.
func (s *Store) SavePodcast(ctx context.Context, p podcast.Podcast) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO podcasts (id, title, author, description, feed_url, image_url, subscribed, subscribed_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, CASE WHEN ? THEN datetime('now') END, datetime('now'))
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    author = excluded.author,
    description = excluded.description,
    feed_url = excluded.feed_url,
    image_url = excluded.image_url,
    subscribed = excluded.subscribed,
    subscribed_at = COALESCE(podcasts.subscribed_at, excluded.subscribed_at),
    updated_at = excluded.updated_at`,
		p.ID, p.Title, p.Author, p.Description, p.FeedURL, p.ImageURL, boolInt(p.Subscribed), boolInt(p.Subscribed))
	if err != nil {
		return fmt.Errorf("save podcast %d: %w", p.ID, err)
	}
	return nil
}

// SetSubscribed updates the subscription flag of an existing podcast.
func (s *Store) SetSubscribed(ctx context.Context, id int64, subscribed bool) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE podcasts
SET subscribed = ?,
    subscribed_at = CASE WHEN ? THEN COALESCE(subscribed_at, datetime('now')) ELSE NULL END,
    updated_at = datetime('now')
WHERE id = ?`, boolInt(subscribed), boolInt(subscribed), id)
	if err != nil {
		return fmt.Errorf("update subscription %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("podcast %d: %w", id, podcast.ErrNotFound)
	}
	return nil
}

const episodeColumns = `id, podcast_id, title, description, audio_url, published_at, duration_seconds, played,
    transcript_url, transcript_type, transcript_text, chapters_url, chapters_json`

func scanEpisode(row interface{ Scan(...any) error }) (*podcast.Episode, error) {
	var e podcast.Episode
	var published int64
	var played int
	var chapters string
	err := row.Scan(&e.ID, &e.PodcastID, &e.Title, &e.Description, &e.AudioURL, &published, &e.DurationSeconds, &played,
		&e.TranscriptURL, &e.TranscriptType, &e.Transcript, &e.ChaptersURL, &chapters)
	if err != nil {
		return nil, err
	}
	if published > 0 {
		e.PublishedAt = time.Unix(published, 0).UTC()
	}
	e.Played = played != 0
	if chapters != "" {
		if err := json.Unmarshal([]byte(chapters), &e.Chapters); err != nil {
			return nil, fmt.Errorf("decode chapters of episode %d: %w", e.ID, err)
		}
	}
	return &e, nil
}

// Episode returns the episode with id, or podcast.ErrNotFound.
func (s *Store) Episode(ctx context.Context, id int64) (*podcast.Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %d: %w", id, podcast.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query episode %d: %w", id, err)
	}
	return e, nil
}

// SaveEpisodes upserts episodes in one transaction. The played flag of an
// existing episode is preserved.
func (s *Store) SaveEpisodes(ctx context.Context, episodes []podcast.Episode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO episodes (id, podcast_id, title, description, audio_url, published_at, duration_seconds, played,
    transcript_url, transcript_type, transcript_text, chapters_url, chapters_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    podcast_id = excluded.podcast_id,
    title = excluded.title,
    description = excluded.description,
    audio_url = excluded.audio_url,
    published_at = excluded.published_at,
    duration_seconds = excluded.duration_seconds,
    transcript_url = excluded.transcript_url,
    transcript_type = excluded.transcript_type,
    transcript_text = CASE WHEN excluded.transcript_text != '' THEN excluded.transcript_text ELSE episodes.transcript_text END,
    chapters_url = excluded.chapters_url,
    chapters_json = CASE WHEN excluded.chapters_json != '[]' THEN excluded.chapters_json ELSE episodes.chapters_json END`)
	if err != nil {
		return fmt.Errorf("prepare episode upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range episodes {
		chapters := []byte("[]")
		if len(e.Chapters) > 0 {
			chapters, err = json.Marshal(e.Chapters)
			if err != nil {
				return fmt.Errorf("encode chapters of episode %d: %w", e.ID, err)
			}
		}
		var published int64
		if !e.PublishedAt.IsZero() {
			published = e.PublishedAt.Unix()
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.PodcastID, e.Title, e.Description, e.AudioURL, published,
			e.DurationSeconds, boolInt(e.Played), e.TranscriptURL, e.TranscriptType, e.Transcript,
			e.ChaptersURL, string(chapters)); err != nil {
			return fmt.Errorf("save episode %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// NextUnplayed returns the oldest unplayed episode of a podcast.
func (s *Store) NextUnplayed(ctx context.Context, podcastID int64) (*podcast.Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes
WHERE podcast_id = ? AND played = 0
ORDER BY published_at ASC, id ASC
LIMIT 1`, podcastID)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unplayed episode of podcast %d: %w", podcastID, podcast.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query next unplayed of %d: %w", podcastID, err)
	}
	return e, nil
}

// SetPlayed sets the played flag. Unknown ids are not an error.
func (s *Store) SetPlayed(ctx context.Context, episodeID int64, played bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE episodes SET played = ? WHERE id = ?`, boolInt(played), episodeID); err != nil {
		return fmt.Errorf("mark episode %d: %w", episodeID, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
