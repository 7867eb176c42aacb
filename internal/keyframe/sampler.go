package keyframe

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitby/summit/internal/video"
)

// FrameSampler pulls single decoded frames from an open video source
type FrameSampler struct {
	source video.Source
}

// NewFrameSampler creates a sampler over the given source
func NewFrameSampler(source video.Source) *FrameSampler {
	return &FrameSampler{source: source}
}

// Sample returns the nearest decodable frame at or after ts. The error is
// explicit when the timestamp is unreachable or the source is unreadable;
// callers skip the candidate and continue, they never substitute a frame.
func (s *FrameSampler) Sample(ctx context.Context, ts time.Duration) ([]byte, error) {
	img, err := s.source.FrameAt(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("frame extraction at %s: %w", ts, err)
	}
	return img, nil
}
