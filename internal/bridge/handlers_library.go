package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/d2verb/podbridge/internal/podcast"
	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/validate"
)

const (
	// DefaultSearchLimit is used when searchPodcasts omits "limit".
	DefaultSearchLimit = 10

	// episodesOnSubscribe is how many recent episodes addPodcast fetches.
	episodesOnSubscribe = 20
)

func (d *Dispatcher) handleSearch(ctx context.Context, req *protocol.Request) (*Result, error) {
	raw := req.Param(protocol.ParamQuery)
	if err := validate.SearchQuery(raw); err != nil {
		return nil, err
	}
	query := validate.Sanitize(raw)
	limit, err := validate.ParseLimit(req.Param(protocol.ParamLimit), DefaultSearchLimit, validate.DefaultMaxLimit)
	if err != nil {
		return nil, err
	}

	found, err := d.searcher.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, operationFailed("Search failed", err)
	}
	if len(found) > limit {
		found = found[:limit]
	}

	records := make([]record, len(found))
	for i, p := range found {
		records[i] = podcastRecord(p)
	}
	flat, items := encodeList(records)
	return &Result{
		Data:  map[string]string{"count": strconv.Itoa(len(found)), "results": flat},
		Items: items,
	}, nil
}

func (d *Dispatcher) handleSubscribed(ctx context.Context, _ *protocol.Request) (*Result, error) {
	subs, err := d.library.Subscribed(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]record, len(subs))
	for i, p := range subs {
		records[i] = podcastRecord(p)
	}
	flat, items := encodeList(records)
	return &Result{
		Data:  map[string]string{"count": strconv.Itoa(len(subs)), "podcasts": flat},
		Items: items,
	}, nil
}

func (d *Dispatcher) handleAddPodcast(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamPodcastID))
	if err != nil {
		return nil, err
	}

	p, err := d.library.Podcast(ctx, id)
	switch {
	case err == nil && p.Subscribed:
		return &Result{Data: map[string]string{
			"podcastId": itoa(id),
			"title":     p.Title,
			"message":   "Already subscribed",
		}}, nil
	case errors.Is(err, podcast.ErrNotFound):
		if p, err = d.searcher.PodcastByFeedID(ctx, id); err != nil {
			if errors.Is(err, podcast.ErrNotFound) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, operationFailed("Podcast lookup failed", err)
		}
	case err != nil:
		return nil, err
	}

	p.Subscribed = true
	if err := d.library.SavePodcast(ctx, *p); err != nil {
		return nil, err
	}
	d.logger.Info("subscribed", "podcast_id", id)
	d.refreshEpisodes(ctx, id)

	return &Result{Data: map[string]string{
		"podcastId": itoa(id),
		"title":     p.Title,
		"message":   "Subscribed",
	}}, nil
}

// refreshEpisodes stores recent episodes of a podcast. Failures are logged
// only.
func (d *Dispatcher) refreshEpisodes(ctx context.Context, podcastID int64) {
	episodes, err := d.searcher.EpisodesByFeedID(ctx, podcastID, episodesOnSubscribe)
	if err != nil {
		d.logger.Warn("fetch episodes failed", "podcast_id", podcastID, "error", err)
		return
	}
	if err := d.library.SaveEpisodes(ctx, episodes); err != nil {
		d.logger.Warn("save episodes failed", "podcast_id", podcastID, "error", err)
	}
}

func (d *Dispatcher) handleRemovePodcast(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamPodcastID))
	if err != nil {
		return nil, err
	}

	p, err := d.library.Podcast(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Subscribed {
		return nil, fmt.Errorf("podcast %d is not subscribed: %w", id, podcast.ErrNotFound)
	}
	if err := d.library.SetSubscribed(ctx, id, false); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"podcastId": itoa(id)}}, nil
}

func (d *Dispatcher) handleNextUnplayed(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamPodcastID))
	if err != nil {
		return nil, err
	}

	e, err := d.library.NextUnplayed(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{
		"episodeId":       itoa(e.ID),
		"title":           e.Title,
		"podcastId":       itoa(e.PodcastID),
		"audioUrl":        e.AudioURL,
		"durationSeconds": itoa(e.DurationSeconds),
	}}, nil
}

func (d *Dispatcher) handleMarkPlayed(ctx context.Context, req *protocol.Request) (*Result, error) {
	return d.setPlayed(ctx, req, true)
}

func (d *Dispatcher) handleMarkUnplayed(ctx context.Context, req *protocol.Request) (*Result, error) {
	return d.setPlayed(ctx, req, false)
}

func (d *Dispatcher) setPlayed(ctx context.Context, req *protocol.Request, played bool) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamEpisodeID))
	if err != nil {
		return nil, err
	}
	if err := d.library.SetPlayed(ctx, id, played); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"episodeId": itoa(id)}}, nil
}

func (d *Dispatcher) handleTranscript(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamEpisodeID))
	if err != nil {
		return nil, err
	}

	e, err := d.library.Episode(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{
		"episodeId":      itoa(id),
		"transcriptUrl":  e.TranscriptURL,
		"transcriptType": e.TranscriptType,
		"transcript":     e.Transcript,
	}}, nil
}

func (d *Dispatcher) handleChapters(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamEpisodeID))
	if err != nil {
		return nil, err
	}

	e, err := d.library.Episode(ctx, id)
	if err != nil {
		return nil, err
	}

	records := make([]record, len(e.Chapters))
	for i, c := range e.Chapters {
		records[i] = chapterRecord(c)
	}
	flat, items := encodeList(records)
	return &Result{
		Data: map[string]string{
			"episodeId":   itoa(id),
			"chaptersUrl": e.ChaptersURL,
			"count":       strconv.Itoa(len(e.Chapters)),
			"chapters":    flat,
		},
		Items: items,
	}, nil
}
