package keyframe

import (
	"time"
)

// CueType identifies the kind of lexical cue found in transcript text.
// It is a closed set; weight and delay lookups are table-driven off the tag.
type CueType int

const (
	CueScreenShareFuture CueType = iota // speaker announces an upcoming screen share
	CueScreenShareImmediate             // screen share already visible
	CueDemonstration                    // demo or walkthrough
	CueTechnical                        // code, configuration, architecture talk
	CueTransition                       // topic transition
	CueImportant                        // emphasis markers
	CueQuestion                         // questions and clarifications
)

// cueTypeNames maps cue types to their config/table keys
var cueTypeNames = map[CueType]string{
	CueScreenShareFuture:    "screen_share_future",
	CueScreenShareImmediate: "screen_share_immediate",
	CueDemonstration:        "demonstration",
	CueTechnical:            "technical",
	CueTransition:           "transition",
	CueImportant:            "important",
	CueQuestion:             "question",
}

// AllCueTypes lists every cue type in definition order
var AllCueTypes = []CueType{
	CueScreenShareFuture,
	CueScreenShareImmediate,
	CueDemonstration,
	CueTechnical,
	CueTransition,
	CueImportant,
	CueQuestion,
}

func (t CueType) String() string {
	if name, ok := cueTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// CueTypeByName returns the cue type for a config key
func CueTypeByName(name string) (CueType, bool) {
	for t, n := range cueTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Cue is a single lexical pattern match in a transcript segment
type Cue struct {
	Type          CueType
	MatchedText   string        // the phrase that matched
	SegmentIndex  int           // index into the source segment slice
	BaseTimestamp time.Duration // segment start time
}

// ScoredCandidate is a cue with a normalized relevance score attached
type ScoredCandidate struct {
	Cue
	Score         float64       // in [0,1]
	ContextWindow string        // surrounding dialogue excerpt for tie-breaks and auditing
	AdjustedTime  time.Duration // extraction timestamp after delay adjustment
}

// Keyframe is a selected video frame paired with its candidate metadata.
// Keyframes for one meeting are ordered by timestamp ascending.
type Keyframe struct {
	Timestamp time.Duration
	Score     float64
	CueType   CueType
	Context   string
	Image     []byte // encoded PNG
	ImagePath string // set by the writer after the image is persisted
}
