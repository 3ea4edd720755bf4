package bridge

import (
	"context"
	"strconv"

	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/validate"
)

func (d *Dispatcher) handleQueue(ctx context.Context, _ *protocol.Request) (*Result, error) {
	queue, err := d.library.Queue(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]record, len(queue))
	for i, e := range queue {
		records[i] = episodeRecord(e)
	}
	flat, items := encodeList(records)
	return &Result{
		Data:  map[string]string{"count": strconv.Itoa(len(queue)), "queue": flat},
		Items: items,
	}, nil
}

func (d *Dispatcher) handleAddToQueue(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamEpisodeID))
	if err != nil {
		return nil, err
	}

	n, err := d.library.Enqueue(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{
		"episodeId":   itoa(id),
		"queueLength": strconv.Itoa(n),
	}}, nil
}

func (d *Dispatcher) handleRemoveFromQueue(ctx context.Context, req *protocol.Request) (*Result, error) {
	id, err := validate.ParseID(req.Param(protocol.ParamEpisodeID))
	if err != nil {
		return nil, err
	}
	if err := d.library.Dequeue(ctx, id); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{"episodeId": itoa(id)}}, nil
}

func (d *Dispatcher) handleClearQueue(ctx context.Context, _ *protocol.Request) (*Result, error) {
	return nil, d.library.ClearQueue(ctx)
}

func (d *Dispatcher) handlePlayNext(ctx context.Context, _ *protocol.Request) (*Result, error) {
	e, err := d.library.PopQueue(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.player.Play(ctx, e.ID, 0); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]string{
		"episodeId": itoa(e.ID),
		"title":     e.Title,
	}}, nil
}
