package keyframe

import (
	"math"
	"strings"
	"time"

	"github.com/mwhitby/summit/internal/transcript"
)

// defaultWeights holds the per-cue-type base weights. Screen shares and
// demonstrations rank highest since they almost always mean something
// changed on screen.
var defaultWeights = map[CueType]float64{
	CueScreenShareFuture:    0.40,
	CueScreenShareImmediate: 0.40,
	CueDemonstration:        0.30,
	CueTechnical:            0.20,
	CueImportant:            0.15,
	CueTransition:           0.10,
	CueQuestion:             0.10,
}

// ScorerConfig tunes the relevance scorer
type ScorerConfig struct {
	// Weights overrides the per-type base weights; nil keeps defaults
	Weights map[CueType]float64
	// ClusterWindow is the span within which same-type cues are considered
	// redundant near-duplicates
	ClusterWindow time.Duration
	// ClusterDecay multiplies the base weight once per earlier same-type cue
	// inside the window. The exact shape is a tunable, not a contract; it only
	// has to reduce scores for temporally clustered same-type cues.
	ClusterDecay float64
	// Bias is an additive adjustment applied to every score. Zero when no
	// historical bias is configured.
	Bias float64
}

// DefaultScorerConfig returns the scorer defaults
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		ClusterWindow: 30 * time.Second,
		ClusterDecay:  0.5,
	}
}

// RelevanceScorer assigns a normalized importance score to each cue.
// Stateless and deterministic given its config.
type RelevanceScorer struct {
	cfg ScorerConfig
}

// NewRelevanceScorer creates a scorer with the given config
func NewRelevanceScorer(cfg ScorerConfig) *RelevanceScorer {
	if cfg.Weights == nil {
		cfg.Weights = defaultWeights
	}
	if cfg.ClusterWindow <= 0 {
		cfg.ClusterWindow = 30 * time.Second
	}
	if cfg.ClusterDecay <= 0 || cfg.ClusterDecay > 1 {
		cfg.ClusterDecay = 0.5
	}
	return &RelevanceScorer{cfg: cfg}
}

// Score produces one scored candidate per cue, preserving input order.
// The segments the cues were extracted from supply content bonuses.
func (s *RelevanceScorer) Score(cues []Cue, segments []transcript.Segment) []ScoredCandidate {
	candidates := make([]ScoredCandidate, 0, len(cues))

	for i, cue := range cues {
		score := s.cfg.Weights[cue.Type]

		// Redundancy decay: every earlier same-type cue inside the cluster
		// window halves (by default) the base weight.
		clustered := 0
		for j := 0; j < i; j++ {
			if cues[j].Type == cue.Type &&
				cue.BaseTimestamp-cues[j].BaseTimestamp <= s.cfg.ClusterWindow {
				clustered++
			}
		}
		if clustered > 0 {
			score *= math.Pow(s.cfg.ClusterDecay, float64(clustered))
		}

		if cue.SegmentIndex < len(segments) {
			score += contentBonus(segments[cue.SegmentIndex].Text)
			if cue.SegmentIndex < len(segments)-1 {
				score += sectionStartBonus(segments[cue.SegmentIndex].Text)
			}
		}

		score += s.cfg.Bias
		score = clamp01(score)

		candidates = append(candidates, ScoredCandidate{
			Cue:   cue,
			Score: score,
		})
	}

	return candidates
}

// contentBonus rewards longer segments, which carry more context
func contentBonus(text string) float64 {
	words := len(strings.Fields(text))
	switch {
	case words > 50:
		return 0.2
	case words > 20:
		return 0.1
	default:
		return 0
	}
}

// sectionStartBonus rewards phrasing that typically opens a new topic
func sectionStartBonus(text string) float64 {
	lower := strings.ToLower(text)
	for _, phrase := range []string{"okay", "so", "now", "next", "let's"} {
		if strings.Contains(lower, phrase) {
			return 0.1
		}
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
