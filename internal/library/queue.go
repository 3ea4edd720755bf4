package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/d2verb/podbridge/internal/podcast"
)

// Queue returns queued episodes in play order.
func (s *Store) Queue(ctx context.Context) ([]podcast.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+qualifiedEpisodeColumns+`
FROM queue q JOIN episodes e ON e.id = q.episode_id
ORDER BY q.position`)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	episodes := []podcast.Episode{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queued episode: %w", err)
		}
		episodes = append(episodes, *e)
	}
	return episodes, rows.Err()
}

// Enqueue appends an episode to the queue and returns the new queue length.
// Enqueueing an already queued episode leaves its position unchanged.
func (s *Store) Enqueue(ctx context.Context, episodeID int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM episodes WHERE id = ?`, episodeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("episode %d: %w", episodeID, podcast.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("check episode %d: %w", episodeID, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO queue (episode_id) VALUES (?)`, episodeID); err != nil {
		return 0, fmt.Errorf("enqueue episode %d: %w", episodeID, err)
	}

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, tx.Commit()
}

// Dequeue removes an episode from the queue.
func (s *Store) Dequeue(ctx context.Context, episodeID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE episode_id = ?`, episodeID)
	if err != nil {
		return fmt.Errorf("dequeue episode %d: %w", episodeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("queued episode %d: %w", episodeID, podcast.ErrNotFound)
	}
	return nil
}

// ClearQueue removes every queue entry.
func (s *Store) ClearQueue(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// PopQueue removes and returns the head of the queue.
func (s *Store) PopQueue(ctx context.Context) (*podcast.Episode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, `SELECT `+qualifiedEpisodeColumns+`
FROM queue q JOIN episodes e ON e.id = q.episode_id
ORDER BY q.position
LIMIT 1`)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue is empty: %w", podcast.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query queue head: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE episode_id = ?`, e.ID); err != nil {
		return nil, fmt.Errorf("pop episode %d: %w", e.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pop: %w", err)
	}
	return e, nil
}

const qualifiedEpisodeColumns = `e.id, e.podcast_id, e.title, e.description, e.audio_url, e.published_at,
    e.duration_seconds, e.played, e.transcript_url, e.transcript_type, e.transcript_text, e.chapters_url,
    e.chapters_json`
