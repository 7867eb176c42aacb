package keyframe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwhitby/summit/internal/transcript"
	"github.com/mwhitby/summit/internal/video"
	"github.com/mwhitby/summit/pkg/logger"
)

// Config tunes the keyframe extraction pipeline
type Config struct {
	MaxFrames       int           // maximum keyframes per meeting
	MinScore        float64       // minimum relevance score in [0,1]
	MinSpacing      time.Duration // minimum spacing between selected keyframes
	ContextSegments int           // segments of dialogue captured around each candidate
}

// Extractor runs the keyframe pipeline for one meeting: it extracts cues,
// scores them, adjusts timestamps for capture delay, selects a spaced subset
// and samples frames from the video.
type Extractor struct {
	cues     *CueExtractor
	scorer   *RelevanceScorer
	delays   *DelayScheduler
	selector *CandidateSelector
	opener   video.Opener
	cfg      Config
	logger   *logger.Logger
}

// NewExtractor creates an Extractor. delayOverrides is the config delay table
// keyed by cue type name (seconds).
func NewExtractor(opener video.Opener, delayOverrides map[string]float64, cfg Config, log *logger.Logger) *Extractor {
	if cfg.ContextSegments <= 0 {
		cfg.ContextSegments = 2
	}
	return &Extractor{
		cues:     NewCueExtractor(),
		scorer:   NewRelevanceScorer(DefaultScorerConfig()),
		delays:   NewDelayScheduler(delayOverrides),
		selector: NewCandidateSelector(),
		opener:   opener,
		cfg:      cfg,
		logger:   log.Named("keyframe"),
	}
}

// Extract returns up to MaxFrames keyframes for the meeting, ordered by
// timestamp ascending. Per-candidate decode failures are skipped; only an
// unreadable video fails the whole extraction.
func (e *Extractor) Extract(ctx context.Context, segments []transcript.Segment, videoPath string) ([]Keyframe, error) {
	source, err := e.opener.Open(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer source.Close()

	candidates := e.Candidates(segments, source.Duration())
	selected := e.selector.Select(candidates, e.cfg.MaxFrames, e.cfg.MinScore, e.cfg.MinSpacing)
	if len(selected) == 0 {
		e.logger.Info("No keyframe candidates cleared the relevance threshold",
			logger.String("video", videoPath),
			logger.Int("candidates", len(candidates)))
		return nil, nil
	}

	sampler := NewFrameSampler(source)
	keyframes := make([]Keyframe, 0, len(selected))
	for _, c := range selected {
		if ctx.Err() != nil {
			return keyframes, ctx.Err()
		}
		img, err := sampler.Sample(ctx, c.AdjustedTime)
		if err != nil {
			e.logger.Warn("Skipping keyframe candidate",
				logger.Duration("timestamp", c.AdjustedTime),
				logger.String("cue_type", c.Type.String()),
				logger.Error(err))
			continue
		}
		keyframes = append(keyframes, Keyframe{
			Timestamp: c.AdjustedTime,
			Score:     c.Score,
			CueType:   c.Type,
			Context:   c.ContextWindow,
			Image:     img,
		})
	}

	e.logger.Info("Extracted keyframes",
		logger.String("video", videoPath),
		logger.Int("selected", len(selected)),
		logger.Int("extracted", len(keyframes)))
	return keyframes, nil
}

// Candidates runs the deterministic part of the pipeline (no decoding):
// cue extraction, scoring, context capture and delay adjustment.
func (e *Extractor) Candidates(segments []transcript.Segment, videoDuration time.Duration) []ScoredCandidate {
	cues := e.cues.Extract(segments)
	candidates := e.scorer.Score(cues, segments)
	for i := range candidates {
		candidates[i].ContextWindow = contextWindow(segments, candidates[i].SegmentIndex, e.cfg.ContextSegments)
		candidates[i].AdjustedTime = e.delays.Adjust(candidates[i], videoDuration)
	}
	return candidates
}

// contextWindow joins the dialogue of the segments around index i
func contextWindow(segments []transcript.Segment, i, radius int) string {
	lo := i - radius
	if lo < 0 {
		lo = 0
	}
	hi := i + radius
	if hi > len(segments)-1 {
		hi = len(segments) - 1
	}

	var parts []string
	for j := lo; j <= hi; j++ {
		text := strings.TrimSpace(segments[j].Text)
		if text == "" {
			continue
		}
		if segments[j].Speaker != "" {
			text = segments[j].Speaker + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
