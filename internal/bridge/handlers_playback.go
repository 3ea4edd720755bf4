package bridge

import (
	"context"
	"strconv"

	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/validate"
)

// DefaultSkipSeconds is used when skip requests omit "seconds".
const DefaultSkipSeconds = 15

func (d *Dispatcher) handlePlayEpisode(ctx context.Context, req *protocol.Request) (*Result, error) {
	episodeID, err := validate.ParseID(req.Param(protocol.ParamEpisodeID))
	if err != nil {
		return nil, err
	}
	start := 0
	if req.HasParam(protocol.ParamStartPosition) {
		if start, err = validate.ParsePosition(req.Param(protocol.ParamStartPosition)); err != nil {
			return nil, err
		}
	}

	if err := d.player.Play(ctx, episodeID, int64(start)); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{
		"episodeId":     itoa(episodeID),
		"startPosition": strconv.Itoa(start),
	}}, nil
}

func (d *Dispatcher) handlePause(ctx context.Context, _ *protocol.Request) (*Result, error) {
	return nil, d.player.Pause(ctx)
}

func (d *Dispatcher) handleResume(ctx context.Context, _ *protocol.Request) (*Result, error) {
	return nil, d.player.Resume(ctx)
}

func (d *Dispatcher) handleStop(ctx context.Context, _ *protocol.Request) (*Result, error) {
	return nil, d.player.Stop(ctx)
}

func skipSeconds(req *protocol.Request) (int, error) {
	if !req.HasParam(protocol.ParamSeconds) {
		return DefaultSkipSeconds, nil
	}
	return validate.ParseSkipSeconds(req.Param(protocol.ParamSeconds))
}

func (d *Dispatcher) handleSkipForward(ctx context.Context, req *protocol.Request) (*Result, error) {
	seconds, err := skipSeconds(req)
	if err != nil {
		return nil, err
	}
	if err := d.player.SkipForward(ctx, int64(seconds)); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"skippedSeconds": strconv.Itoa(seconds)}}, nil
}

func (d *Dispatcher) handleSkipBackward(ctx context.Context, req *protocol.Request) (*Result, error) {
	seconds, err := skipSeconds(req)
	if err != nil {
		return nil, err
	}
	if err := d.player.SkipBackward(ctx, int64(seconds)); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"skippedSeconds": strconv.Itoa(seconds)}}, nil
}

func (d *Dispatcher) handleSeekTo(ctx context.Context, req *protocol.Request) (*Result, error) {
	position, err := validate.ParsePosition(req.Param(protocol.ParamPosition))
	if err != nil {
		return nil, err
	}
	if err := d.player.SeekTo(ctx, int64(position)); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"positionSeconds": strconv.Itoa(position)}}, nil
}

func (d *Dispatcher) handleSetSpeed(ctx context.Context, req *protocol.Request) (*Result, error) {
	speed, err := validate.ParseSpeed(req.Param(protocol.ParamSpeed))
	if err != nil {
		return nil, err
	}
	if err := d.player.SetSpeed(ctx, speed); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"speed": validate.FormatSpeed(speed)}}, nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, _ *protocol.Request) (*Result, error) {
	st, err := d.player.Status(ctx)
	if err != nil {
		return nil, err
	}

	data := map[string]string{
		"isPlaying":           strconv.FormatBool(st.Playing),
		"positionSeconds":     itoa(st.PositionSeconds),
		"durationSeconds":     itoa(st.DurationSeconds),
		"playbackSpeed":       validate.FormatSpeed(st.Speed),
		"currentEpisodeId":    "",
		"currentEpisodeTitle": "",
	}
	if st.HasEpisode() {
		data["currentEpisodeId"] = itoa(st.EpisodeID)
		data["currentEpisodeTitle"] = st.EpisodeTitle
	}
	return &Result{Data: data}, nil
}
