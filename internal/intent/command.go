package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/validate"
)

// ErrNoAction is returned for intents the bridge has no action for.
var ErrNoAction = errors.New("intent has no bridge action")

// ErrIncomplete is returned when an intent lacks the target its action needs.
var ErrIncomplete = errors.New("intent is missing its target")

// Command is a bridge action with its wire parameters.
type Command struct {
	Action string
	Params map[string]string
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func idParam(action, name string, id int64) (Command, error) {
	if id <= 0 {
		return Command{}, fmt.Errorf("%s: %w", action, ErrIncomplete)
	}
	return Command{Action: action, Params: map[string]string{name: itoa(id)}}, nil
}

// ToCommand maps an intent to the bridge action that carries it out.
func ToCommand(in Intent) (Command, error) {
	switch v := in.(type) {
	case Play:
		switch {
		case v.EpisodeID > 0:
			params := map[string]string{protocol.ParamEpisodeID: itoa(v.EpisodeID)}
			if v.StartSeconds > 0 {
				params[protocol.ParamStartPosition] = itoa(v.StartSeconds)
			}
			return Command{Action: protocol.ActionPlayEpisode, Params: params}, nil
		case v.Query != "":
			return Command{
				Action: protocol.ActionSearchPodcasts,
				Params: map[string]string{protocol.ParamQuery: v.Query},
			}, nil
		default:
			return Command{Action: protocol.ActionResumePlayback}, nil
		}
	case Pause:
		return Command{Action: protocol.ActionPausePlayback}, nil
	case Resume:
		return Command{Action: protocol.ActionResumePlayback}, nil
	case Stop:
		return Command{Action: protocol.ActionStopPlayback}, nil
	case SkipForward:
		return skipCommand(protocol.ActionSkipForward, v.Seconds), nil
	case SkipBackward:
		return skipCommand(protocol.ActionSkipBackward, v.Seconds), nil
	case SeekTo:
		if v.Seconds < 0 {
			return Command{}, fmt.Errorf("%s: %w", protocol.ActionSeekTo, ErrIncomplete)
		}
		return Command{
			Action: protocol.ActionSeekTo,
			Params: map[string]string{protocol.ParamPosition: itoa(v.Seconds)},
		}, nil
	case NextEpisode:
		return Command{Action: protocol.ActionPlayNextInQueue}, nil
	case SetSpeed:
		return Command{
			Action: protocol.ActionSetPlaybackSpeed,
			Params: map[string]string{protocol.ParamSpeed: validate.FormatSpeed(v.Speed)},
		}, nil
	case Search:
		if v.Query == "" {
			return Command{}, fmt.Errorf("%s: %w", protocol.ActionSearchPodcasts, ErrIncomplete)
		}
		return Command{
			Action: protocol.ActionSearchPodcasts,
			Params: map[string]string{protocol.ParamQuery: v.Query},
		}, nil
	case Subscribe:
		return idParam(protocol.ActionAddPodcast, protocol.ParamPodcastID, v.PodcastID)
	case Unsubscribe:
		return idParam(protocol.ActionRemovePodcast, protocol.ParamPodcastID, v.PodcastID)
	case MarkPlayed:
		return idParam(protocol.ActionMarkAsPlayed, protocol.ParamEpisodeID, v.EpisodeID)
	case MarkUnplayed:
		return idParam(protocol.ActionMarkAsUnplayed, protocol.ParamEpisodeID, v.EpisodeID)
	case StatusQuery:
		switch v.Topic {
		case TopicSubscriptions:
			return Command{Action: protocol.ActionGetSubscribedPodcasts}, nil
		case TopicQueue:
			return Command{Action: protocol.ActionGetPlaybackQueue}, nil
		default:
			return Command{Action: protocol.ActionGetPlaybackStatus}, nil
		}
	case QueueAdd:
		return idParam(protocol.ActionAddToQueue, protocol.ParamEpisodeID, v.EpisodeID)
	case QueueClear:
		return Command{Action: protocol.ActionClearQueue}, nil
	case PreviousEpisode, Unrecognized, Ambiguous:
		return Command{}, fmt.Errorf("%s: %w", in.Kind(), ErrNoAction)
	default:
		return Command{}, fmt.Errorf("%T: %w", in, ErrNoAction)
	}
}

func skipCommand(action string, seconds int64) Command {
	if seconds <= 0 {
		return Command{Action: action}
	}
	return Command{Action: action, Params: map[string]string{protocol.ParamSeconds: itoa(seconds)}}
}

// wireIntent is the JSON form an external parser emits.
type wireIntent struct {
	Kind       string            `json:"kind"`
	Confidence float64           `json:"confidence"`
	RawText    string            `json:"rawText"`
	EpisodeID  int64             `json:"episodeId,omitempty"`
	PodcastID  int64             `json:"podcastId,omitempty"`
	Seconds    int64             `json:"seconds,omitempty"`
	Speed      float64           `json:"speed,omitempty"`
	Query      string            `json:"query,omitempty"`
	Topic      string            `json:"topic,omitempty"`
	Candidates []json.RawMessage `json:"candidates,omitempty"`
}

var topics = map[string]Topic{
	"":              TopicNowPlaying,
	"nowPlaying":    TopicNowPlaying,
	"subscriptions": TopicSubscriptions,
	"queue":         TopicQueue,
}

// Decode parses one intent from its JSON form.
func Decode(data []byte) (Intent, error) {
	var w wireIntent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}

	kind, ok := ParseKind(w.Kind)
	if !ok {
		return nil, fmt.Errorf("decode intent: unknown kind %q", w.Kind)
	}
	m := NewMeta(w.Confidence, w.RawText)

	switch kind {
	case KindUnrecognized:
		return NewUnrecognized(w.RawText), nil
	case KindAmbiguous:
		candidates := make([]Intent, 0, len(w.Candidates))
		for i, raw := range w.Candidates {
			c, err := Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("candidate %d: %w", i, err)
			}
			candidates = append(candidates, c)
		}
		return NewAmbiguous(w.RawText, candidates...)
	case KindPlay:
		return Play{Meta: m, EpisodeID: w.EpisodeID, StartSeconds: w.Seconds, Query: w.Query}, nil
	case KindPause:
		return Pause{m}, nil
	case KindResume:
		return Resume{m}, nil
	case KindStop:
		return Stop{m}, nil
	case KindSkipForward:
		return SkipForward{Meta: m, Seconds: w.Seconds}, nil
	case KindSkipBackward:
		return SkipBackward{Meta: m, Seconds: w.Seconds}, nil
	case KindSeekTo:
		return SeekTo{Meta: m, Seconds: w.Seconds}, nil
	case KindNextEpisode:
		return NextEpisode{m}, nil
	case KindPreviousEpisode:
		return PreviousEpisode{m}, nil
	case KindSetSpeed:
		return SetSpeed{Meta: m, Speed: w.Speed}, nil
	case KindSearch:
		return Search{Meta: m, Query: w.Query}, nil
	case KindSubscribe:
		return Subscribe{Meta: m, PodcastID: w.PodcastID}, nil
	case KindUnsubscribe:
		return Unsubscribe{Meta: m, PodcastID: w.PodcastID}, nil
	case KindMarkPlayed:
		return MarkPlayed{Meta: m, EpisodeID: w.EpisodeID}, nil
	case KindMarkUnplayed:
		return MarkUnplayed{Meta: m, EpisodeID: w.EpisodeID}, nil
	case KindStatusQuery:
		topic, ok := topics[w.Topic]
		if !ok {
			return nil, fmt.Errorf("decode intent: unknown topic %q", w.Topic)
		}
		return StatusQuery{Meta: m, Topic: topic}, nil
	case KindQueueAdd:
		return QueueAdd{Meta: m, EpisodeID: w.EpisodeID}, nil
	case KindQueueClear:
		return QueueClear{m}, nil
	}
	return nil, fmt.Errorf("decode intent: unhandled kind %s", kind)
}
