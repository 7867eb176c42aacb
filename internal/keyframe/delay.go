package keyframe

import (
	"time"
)

// defaultDelays maps each cue type to the lag between the speaker announcing
// an action and the action actually appearing on screen. "I will share my
// screen" needs a few seconds; "I'm sharing my screen" needs none.
var defaultDelays = map[CueType]time.Duration{
	CueScreenShareFuture:    3 * time.Second,
	CueScreenShareImmediate: 0,
	CueDemonstration:        2 * time.Second,
	CueTechnical:            1 * time.Second,
	CueTransition:           2 * time.Second,
	CueImportant:            500 * time.Millisecond,
	CueQuestion:             1 * time.Second,
}

// endMargin is how far before the stream end clamped timestamps land. A
// seek at or past the exact duration has no frame to decode.
const endMargin = time.Second

// DelayScheduler maps cue types to extraction-time offsets
type DelayScheduler struct {
	delays map[CueType]time.Duration
}

// NewDelayScheduler creates a scheduler with the default delay table,
// overridden per cue type by the entries in overrides (keyed by cue type
// config name, values in seconds).
func NewDelayScheduler(overrides map[string]float64) *DelayScheduler {
	delays := make(map[CueType]time.Duration, len(defaultDelays))
	for t, d := range defaultDelays {
		delays[t] = d
	}
	for name, secs := range overrides {
		if t, ok := CueTypeByName(name); ok {
			delays[t] = time.Duration(secs * float64(time.Second))
		}
	}
	return &DelayScheduler{delays: delays}
}

// Delay returns the configured delay for a cue type
func (s *DelayScheduler) Delay(t CueType) time.Duration {
	return s.delays[t]
}

// Adjust returns the extraction timestamp for a candidate: its base timestamp
// plus the per-type delay, clamped to [0, videoDuration - endMargin] so a
// late cue still lands on a decodable frame.
func (s *DelayScheduler) Adjust(c ScoredCandidate, videoDuration time.Duration) time.Duration {
	ts := c.BaseTimestamp + s.delays[c.Type]
	if videoDuration > 0 {
		limit := videoDuration - endMargin
		if limit < 0 {
			limit = 0
		}
		if ts > limit {
			ts = limit
		}
	}
	if ts < 0 {
		return 0
	}
	return ts
}
