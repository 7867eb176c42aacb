package keyframe

import (
	"strings"

	"github.com/mwhitby/summit/internal/transcript"
)

// lexicon holds the phrase patterns per cue type. Matching is
// case-insensitive substring matching over the segment text.
//
// The future/immediate split matters for timing: "share my screen" is an
// announcement of something about to happen, "sharing my screen" means the
// content is already visible.
var lexicon = map[CueType][]string{
	CueScreenShareFuture: {
		"share my screen",
		"let me pull up",
		"let me show",
		"i will share",
		"i'll share",
		"can you see",
		"take a look",
		"on the screen",
	},
	CueScreenShareImmediate: {
		"sharing my screen",
		"i'm sharing",
		"screen is shared",
		"as you can see",
		"you should see",
		"here you can see",
	},
	CueDemonstration: {
		"demo",
		"example",
		"workflow",
		"step by step",
		"walk through",
		"walkthrough",
	},
	CueTechnical: {
		"code",
		"configuration",
		"setup",
		"implementation",
		"architecture",
		"deployment",
	},
	CueTransition: {
		"moving on",
		"next topic",
		"let's go to",
		"switch to",
		"another thing",
	},
	CueImportant: {
		"important",
		"critical",
		"essential",
		"note that",
		"remember",
		"key point",
	},
	CueQuestion: {
		"question",
		"clarify",
		"explain",
		"what happens if",
	},
}

// CueExtractor scans transcript segments for lexical cues
type CueExtractor struct {
	lexicon map[CueType][]string
}

// NewCueExtractor creates an extractor with the built-in lexicon
func NewCueExtractor() *CueExtractor {
	return &CueExtractor{lexicon: lexicon}
}

// Extract returns the cues found in the given segments, in segment order.
// A segment may match several cue types; one Cue is emitted per matched type,
// anchored at the segment's start timestamp. Pure function over its input.
func (e *CueExtractor) Extract(segments []transcript.Segment) []Cue {
	var cues []Cue
	for i, seg := range segments {
		text := strings.ToLower(seg.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, cueType := range AllCueTypes {
			for _, phrase := range e.lexicon[cueType] {
				if strings.Contains(text, phrase) {
					cues = append(cues, Cue{
						Type:          cueType,
						MatchedText:   phrase,
						SegmentIndex:  i,
						BaseTimestamp: seg.Start,
					})
					break // one cue per type per segment
				}
			}
		}
	}
	return cues
}
