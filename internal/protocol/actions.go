package protocol

import "sort"

// Action names
const (
	ActionPlayEpisode            = "playEpisode"
	ActionPausePlayback          = "pausePlayback"
	ActionResumePlayback         = "resumePlayback"
	ActionStopPlayback           = "stopPlayback"
	ActionSkipForward            = "skipForward"
	ActionSkipBackward           = "skipBackward"
	ActionSeekTo                 = "seekTo"
	ActionSetPlaybackSpeed       = "setPlaybackSpeed"
	ActionGetPlaybackStatus      = "getPlaybackStatus"
	ActionSearchPodcasts         = "searchPodcasts"
	ActionGetSubscribedPodcasts  = "getSubscribedPodcasts"
	ActionAddPodcast             = "addPodcast"
	ActionRemovePodcast          = "removePodcast"
	ActionGetNextUnplayedEpisode = "getNextUnplayedEpisode"
	ActionMarkAsPlayed           = "markAsPlayed"
	ActionMarkAsUnplayed         = "markAsUnplayed"
	ActionGetTranscript          = "getTranscript"
	ActionGetChapters            = "getChapters"
	ActionGetPlaybackQueue       = "getPlaybackQueue"
	ActionAddToQueue             = "addToQueue"
	ActionRemoveFromQueue        = "removeFromQueue"
	ActionClearQueue             = "clearQueue"
	ActionPlayNextInQueue        = "playNextInQueue"
)

// Parameter names
const (
	ParamEpisodeID     = "episodeId"
	ParamPodcastID     = "podcastId"
	ParamStartPosition = "startPosition"
	ParamSeconds       = "seconds"
	ParamPosition      = "position"
	ParamSpeed         = "speed"
	ParamQuery         = "query"
	ParamLimit         = "limit"
)

// ActionSpec describes the parameters one action accepts.
type ActionSpec struct {
	Name        string
	Required    []string
	Optional    []string
	Description string
}

var actionSpecs = map[string]ActionSpec{
	ActionPlayEpisode: {
		Required:    []string{ParamEpisodeID},
		Optional:    []string{ParamStartPosition},
		Description: "Start playing an episode, optionally from an offset in seconds",
	},
	ActionPausePlayback:  {Description: "Pause playback"},
	ActionResumePlayback: {Description: "Resume playback"},
	ActionStopPlayback:   {Description: "Stop playback"},
	ActionSkipForward: {
		Optional:    []string{ParamSeconds},
		Description: "Skip forward (default 15 seconds)",
	},
	ActionSkipBackward: {
		Optional:    []string{ParamSeconds},
		Description: "Skip backward (default 15 seconds)",
	},
	ActionSeekTo: {
		Required:    []string{ParamPosition},
		Description: "Seek to an absolute position in seconds",
	},
	ActionSetPlaybackSpeed: {
		Required:    []string{ParamSpeed},
		Description: "Set playback speed (0.5 to 3.0 in fixed steps)",
	},
	ActionGetPlaybackStatus: {Description: "Report the current playback status"},
	ActionSearchPodcasts: {
		Required:    []string{ParamQuery},
		Optional:    []string{ParamLimit},
		Description: "Search the podcast directory",
	},
	ActionGetSubscribedPodcasts: {Description: "List subscribed podcasts"},
	ActionAddPodcast: {
		Required:    []string{ParamPodcastID},
		Description: "Subscribe to a podcast",
	},
	ActionRemovePodcast: {
		Required:    []string{ParamPodcastID},
		Description: "Unsubscribe from a podcast",
	},
	ActionGetNextUnplayedEpisode: {
		Required:    []string{ParamPodcastID},
		Description: "Find the oldest unplayed episode of a podcast",
	},
	ActionMarkAsPlayed: {
		Required:    []string{ParamEpisodeID},
		Description: "Mark an episode as played",
	},
	ActionMarkAsUnplayed: {
		Required:    []string{ParamEpisodeID},
		Description: "Mark an episode as unplayed",
	},
	ActionGetTranscript: {
		Required:    []string{ParamEpisodeID},
		Description: "Fetch transcript details for an episode",
	},
	ActionGetChapters: {
		Required:    []string{ParamEpisodeID},
		Description: "Fetch chapter markers for an episode",
	},
	ActionGetPlaybackQueue: {Description: "List the playback queue"},
	ActionAddToQueue: {
		Required:    []string{ParamEpisodeID},
		Description: "Append an episode to the playback queue",
	},
	ActionRemoveFromQueue: {
		Required:    []string{ParamEpisodeID},
		Description: "Remove an episode from the playback queue",
	},
	ActionClearQueue:      {Description: "Empty the playback queue"},
	ActionPlayNextInQueue: {Description: "Play the episode at the head of the queue"},
}

func init() {
	for name, spec := range actionSpecs {
		spec.Name = name
		actionSpecs[name] = spec
	}
}

// LookupAction returns the spec for name.
func LookupAction(name string) (ActionSpec, bool) {
	spec, ok := actionSpecs[name]
	return spec, ok
}

// SupportedActions returns every registered action, sorted by name.
func SupportedActions() []ActionSpec {
	specs := make([]ActionSpec, 0, len(actionSpecs))
	for _, spec := range actionSpecs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// ActionNames returns the sorted list of registered action names.
func ActionNames() []string {
	specs := SupportedActions()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// MissingParam returns the first required parameter absent from req, or "".
func (s ActionSpec) MissingParam(req *Request) string {
	for _, p := range s.Required {
		if !req.HasParam(p) {
			return p
		}
	}
	return ""
}
