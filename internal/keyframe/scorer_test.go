package keyframe

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mwhitby/summit/internal/transcript"
)

const scoreTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < scoreTolerance
}

func TestScoreBaseWeights(t *testing.T) {
	tests := []struct {
		name    string
		cueType CueType
		want    float64
	}{
		{"screen share future", CueScreenShareFuture, 0.40},
		{"screen share immediate", CueScreenShareImmediate, 0.40},
		{"demonstration", CueDemonstration, 0.30},
		{"technical", CueTechnical, 0.20},
		{"important", CueImportant, 0.15},
		{"transition", CueTransition, 0.10},
		{"question", CueQuestion, 0.10},
	}

	scorer := NewRelevanceScorer(DefaultScorerConfig())
	// Two segments so the cue is never the last segment; short neutral text
	// avoids content and section bonuses.
	segments := []transcript.Segment{
		{Start: 0, Text: "the build failed"},
		{Start: 10 * time.Second, Text: "it did"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues := []Cue{{Type: tt.cueType, SegmentIndex: 0, BaseTimestamp: 0}}
			got := scorer.Score(cues, segments)
			if len(got) != 1 {
				t.Fatalf("Score() returned %d candidates, want 1", len(got))
			}
			if !almostEqual(got[0].Score, tt.want) {
				t.Errorf("Score = %g, want %g", got[0].Score, tt.want)
			}
		})
	}
}

func TestScoreClusterDecay(t *testing.T) {
	scorer := NewRelevanceScorer(DefaultScorerConfig())
	segments := []transcript.Segment{
		{Start: 0, Text: "the build failed"},
		{Start: 10 * time.Second, Text: "it did"},
		{Start: 20 * time.Second, Text: "try again"},
		{Start: 2 * time.Minute, Text: "much later"},
		{Start: 3 * time.Minute, Text: "end"},
	}

	cues := []Cue{
		{Type: CueTechnical, SegmentIndex: 0, BaseTimestamp: 0},
		{Type: CueTechnical, SegmentIndex: 1, BaseTimestamp: 10 * time.Second},
		{Type: CueTechnical, SegmentIndex: 2, BaseTimestamp: 20 * time.Second},
		{Type: CueTechnical, SegmentIndex: 3, BaseTimestamp: 2 * time.Minute},
	}

	got := scorer.Score(cues, segments)
	if len(got) != 4 {
		t.Fatalf("Score() returned %d candidates, want 4", len(got))
	}

	// 0.20 base, halved once per earlier same-type cue within 30s
	wants := []float64{0.20, 0.10, 0.05, 0.20}
	for i, want := range wants {
		if !almostEqual(got[i].Score, want) {
			t.Errorf("candidate[%d].Score = %g, want %g", i, got[i].Score, want)
		}
	}
}

func TestScoreDecayIgnoresOtherTypes(t *testing.T) {
	scorer := NewRelevanceScorer(DefaultScorerConfig())
	segments := []transcript.Segment{
		{Start: 0, Text: "the build failed"},
		{Start: 5 * time.Second, Text: "it did"},
		{Start: 10 * time.Second, Text: "end"},
	}

	cues := []Cue{
		{Type: CueTechnical, SegmentIndex: 0, BaseTimestamp: 0},
		{Type: CueImportant, SegmentIndex: 1, BaseTimestamp: 5 * time.Second},
	}

	got := scorer.Score(cues, segments)
	if !almostEqual(got[1].Score, 0.15) {
		t.Errorf("different-type cue decayed: Score = %g, want 0.15", got[1].Score)
	}
}

func TestScoreContentBonus(t *testing.T) {
	tests := []struct {
		name  string
		words int
		want  float64
	}{
		{"short segment", 5, 0.20},
		{"medium segment", 25, 0.30},
		{"long segment", 60, 0.40},
	}

	scorer := NewRelevanceScorer(DefaultScorerConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.TrimSpace(strings.Repeat("alpha ", tt.words))
			segments := []transcript.Segment{
				{Start: 0, Text: text},
				{Start: 10 * time.Second, Text: "end"},
			}
			cues := []Cue{{Type: CueTechnical, SegmentIndex: 0}}

			got := scorer.Score(cues, segments)
			if !almostEqual(got[0].Score, tt.want) {
				t.Errorf("Score = %g, want %g", got[0].Score, tt.want)
			}
		})
	}
}

func TestScoreSectionStartBonus(t *testing.T) {
	scorer := NewRelevanceScorer(DefaultScorerConfig())
	segments := []transcript.Segment{
		{Start: 0, Text: "okay the build failed"},
		{Start: 10 * time.Second, Text: "it did"},
	}
	cues := []Cue{{Type: CueTechnical, SegmentIndex: 0}}

	got := scorer.Score(cues, segments)
	if !almostEqual(got[0].Score, 0.30) {
		t.Errorf("Score = %g, want 0.30 (base plus section-start bonus)", got[0].Score)
	}
}

func TestScoreClampedToOne(t *testing.T) {
	scorer := NewRelevanceScorer(ScorerConfig{
		Weights: map[CueType]float64{CueScreenShareFuture: 0.95},
		Bias:    0.2,
	})
	segments := []transcript.Segment{
		{Start: 0, Text: "the build failed"},
		{Start: 10 * time.Second, Text: "end"},
	}
	cues := []Cue{{Type: CueScreenShareFuture, SegmentIndex: 0}}

	got := scorer.Score(cues, segments)
	if got[0].Score != 1.0 {
		t.Errorf("Score = %g, want clamp at 1.0", got[0].Score)
	}
}

func TestScoreNegativeBiasClampedToZero(t *testing.T) {
	scorer := NewRelevanceScorer(ScorerConfig{Bias: -0.5})
	segments := []transcript.Segment{
		{Start: 0, Text: "the build failed"},
		{Start: 10 * time.Second, Text: "end"},
	}
	cues := []Cue{{Type: CueQuestion, SegmentIndex: 0}}

	got := scorer.Score(cues, segments)
	if got[0].Score != 0 {
		t.Errorf("Score = %g, want clamp at 0", got[0].Score)
	}
}

func TestScorePreservesInputOrder(t *testing.T) {
	scorer := NewRelevanceScorer(DefaultScorerConfig())
	segments := []transcript.Segment{
		{Start: 0, Text: "the build failed"},
		{Start: time.Minute, Text: "it did"},
		{Start: 2 * time.Minute, Text: "end"},
	}
	cues := []Cue{
		{Type: CueQuestion, SegmentIndex: 0, BaseTimestamp: 0},
		{Type: CueScreenShareFuture, SegmentIndex: 1, BaseTimestamp: time.Minute},
	}

	got := scorer.Score(cues, segments)
	if got[0].Type != CueQuestion || got[1].Type != CueScreenShareFuture {
		t.Errorf("Score() reordered candidates: %+v", got)
	}
}
