package keyframe

import (
	"sort"
	"time"
)

// CandidateSelector picks a well-spaced, high-score subset of candidates
type CandidateSelector struct{}

// NewCandidateSelector creates a selector
func NewCandidateSelector() *CandidateSelector {
	return &CandidateSelector{}
}

// Select filters candidates below minScore, then greedily accepts the
// highest-scoring remaining candidates whose adjusted timestamps keep at
// least minSpacing from everything already accepted, up to maxFrames. Ties
// on score go to the earlier timestamp. The result is re-sorted by timestamp
// ascending. Fewer than maxFrames survivors are returned as-is, never padded;
// zero survivors is an empty slice, not an error.
func (s *CandidateSelector) Select(candidates []ScoredCandidate, maxFrames int, minScore float64, minSpacing time.Duration) []ScoredCandidate {
	if maxFrames <= 0 {
		return nil
	}

	eligible := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= minScore {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].AdjustedTime < eligible[j].AdjustedTime
	})

	var selected []ScoredCandidate
	for _, c := range eligible {
		tooClose := false
		for _, accepted := range selected {
			if absDuration(c.AdjustedTime-accepted.AdjustedTime) < minSpacing {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		selected = append(selected, c)
		if len(selected) >= maxFrames {
			break
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].AdjustedTime < selected[j].AdjustedTime
	})

	return selected
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
