package keyframe

import (
	"strings"
	"testing"
	"time"

	"github.com/mwhitby/summit/internal/transcript"
	"github.com/mwhitby/summit/pkg/logger"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(nil, nil, Config{
		MaxFrames:       5,
		MinScore:        0.3,
		MinSpacing:      time.Minute,
		ContextSegments: 2,
	}, logger.NewNop())
}

func TestCandidatesAdjustsScreenShareTiming(t *testing.T) {
	// The speaker announces a share at 10:00; the frame worth capturing
	// appears a few seconds later.
	segments := []transcript.Segment{
		{Start: 9 * time.Minute, Speaker: "Ana", Text: "Any other blockers before we continue"},
		{Start: 10 * time.Minute, Speaker: "Ana", Text: "I will share my screen with the metrics"},
		{Start: 10*time.Minute + 15*time.Second, Speaker: "Ben", Text: "Looks good to me"},
	}

	candidates := newTestExtractor(t).Candidates(segments, time.Hour)
	if len(candidates) != 1 {
		t.Fatalf("Candidates() returned %d, want 1: %+v", len(candidates), candidates)
	}

	c := candidates[0]
	if c.Type != CueScreenShareFuture {
		t.Errorf("Type = %v, want CueScreenShareFuture", c.Type)
	}
	if c.AdjustedTime != 10*time.Minute+3*time.Second {
		t.Errorf("AdjustedTime = %v, want 10m3s", c.AdjustedTime)
	}
	if c.BaseTimestamp != 10*time.Minute {
		t.Errorf("BaseTimestamp = %v, want 10m", c.BaseTimestamp)
	}
}

func TestCandidatesClampToVideoEnd(t *testing.T) {
	duration := 5 * time.Minute
	segments := []transcript.Segment{
		{Start: duration - time.Second, Text: "Quick demo before we wrap up"},
	}

	candidates := newTestExtractor(t).Candidates(segments, duration)
	if len(candidates) != 1 {
		t.Fatalf("Candidates() returned %d, want 1", len(candidates))
	}
	if candidates[0].AdjustedTime != duration-time.Second {
		t.Errorf("AdjustedTime = %v, want clamp at %v", candidates[0].AdjustedTime, duration-time.Second)
	}
}

func TestCandidatesContextWindow(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, Speaker: "Ana", Text: "Kicking off"},
		{Start: 30 * time.Second, Speaker: "Ben", Text: "One sec"},
		{Start: 60 * time.Second, Speaker: "Ana", Text: "Take a look at the error budget"},
		{Start: 90 * time.Second, Speaker: "Ben", Text: "That spike is new"},
		{Start: 120 * time.Second, Speaker: "Cam", Text: "Since Tuesday"},
		{Start: 150 * time.Second, Speaker: "Ana", Text: "Right"},
	}

	e := NewExtractor(nil, nil, Config{
		MaxFrames:       5,
		MinScore:        0.3,
		MinSpacing:      time.Minute,
		ContextSegments: 1,
	}, logger.NewNop())

	candidates := e.Candidates(segments, time.Hour)
	if len(candidates) != 1 {
		t.Fatalf("Candidates() returned %d, want 1: %+v", len(candidates), candidates)
	}

	ctx := candidates[0].ContextWindow
	for _, want := range []string{"Ben: One sec", "Ana: Take a look", "Ben: That spike"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("ContextWindow %q missing %q", ctx, want)
		}
	}
	if strings.Contains(ctx, "Kicking off") || strings.Contains(ctx, "Since Tuesday") {
		t.Errorf("ContextWindow %q includes segments beyond the radius", ctx)
	}
}

func TestCandidatesEmptyTranscript(t *testing.T) {
	candidates := newTestExtractor(t).Candidates(nil, time.Hour)
	if len(candidates) != 0 {
		t.Errorf("Candidates(nil) = %v, want empty", candidates)
	}
}
