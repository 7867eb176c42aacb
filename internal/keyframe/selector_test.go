package keyframe

import (
	"testing"
	"time"
)

func candidate(score float64, at time.Duration) ScoredCandidate {
	return ScoredCandidate{Score: score, AdjustedTime: at}
}

func TestSelectFiltersAndCaps(t *testing.T) {
	candidates := []ScoredCandidate{
		candidate(0.9, 1*time.Minute),
		candidate(0.2, 3*time.Minute), // below threshold
		candidate(0.8, 5*time.Minute),
		candidate(0.7, 7*time.Minute),
		candidate(0.6, 9*time.Minute),
	}

	got := NewCandidateSelector().Select(candidates, 3, 0.3, time.Minute)
	if len(got) != 3 {
		t.Fatalf("Select() returned %d, want 3", len(got))
	}
	// Highest three survivors, returned in timestamp order
	wantTimes := []time.Duration{1 * time.Minute, 5 * time.Minute, 7 * time.Minute}
	for i, want := range wantTimes {
		if got[i].AdjustedTime != want {
			t.Errorf("selected[%d].AdjustedTime = %v, want %v", i, got[i].AdjustedTime, want)
		}
	}
}

func TestSelectEnforcesSpacing(t *testing.T) {
	// Three candidates inside one spacing window: only the best survives
	candidates := []ScoredCandidate{
		candidate(0.5, 60*time.Second),
		candidate(0.9, 70*time.Second),
		candidate(0.7, 80*time.Second),
		candidate(0.6, 200*time.Second),
	}

	got := NewCandidateSelector().Select(candidates, 5, 0.3, time.Minute)
	if len(got) != 2 {
		t.Fatalf("Select() returned %d, want 2: %+v", len(got), got)
	}
	if got[0].AdjustedTime != 70*time.Second || got[0].Score != 0.9 {
		t.Errorf("selected[0] = %+v, want the 0.9 candidate at 70s", got[0])
	}
	if got[1].AdjustedTime != 200*time.Second {
		t.Errorf("selected[1].AdjustedTime = %v, want 200s", got[1].AdjustedTime)
	}

	// Spacing invariant over the result
	for i := 1; i < len(got); i++ {
		if got[i].AdjustedTime-got[i-1].AdjustedTime < time.Minute {
			t.Errorf("spacing violated between %v and %v", got[i-1].AdjustedTime, got[i].AdjustedTime)
		}
	}
}

func TestSelectTieBreaksOnEarlierTimestamp(t *testing.T) {
	candidates := []ScoredCandidate{
		candidate(0.8, 5*time.Minute),
		candidate(0.8, 2*time.Minute),
	}

	got := NewCandidateSelector().Select(candidates, 1, 0.3, time.Minute)
	if len(got) != 1 {
		t.Fatalf("Select() returned %d, want 1", len(got))
	}
	if got[0].AdjustedTime != 2*time.Minute {
		t.Errorf("tie went to %v, want the earlier 2m candidate", got[0].AdjustedTime)
	}
}

func TestSelectFewerSurvivorsThanBudget(t *testing.T) {
	candidates := []ScoredCandidate{
		candidate(0.9, 1*time.Minute),
		candidate(0.1, 5*time.Minute),
	}

	got := NewCandidateSelector().Select(candidates, 5, 0.3, time.Minute)
	if len(got) != 1 {
		t.Errorf("Select() returned %d, want 1 (never padded)", len(got))
	}
}

func TestSelectEmpty(t *testing.T) {
	sel := NewCandidateSelector()

	if got := sel.Select(nil, 5, 0.3, time.Minute); len(got) != 0 {
		t.Errorf("Select(nil) = %v, want empty", got)
	}
	if got := sel.Select([]ScoredCandidate{candidate(0.1, 0)}, 5, 0.3, time.Minute); len(got) != 0 {
		t.Errorf("Select() with no survivors = %v, want empty", got)
	}
	if got := sel.Select([]ScoredCandidate{candidate(0.9, 0)}, 0, 0.3, time.Minute); len(got) != 0 {
		t.Errorf("Select() with zero budget = %v, want empty", got)
	}
}

func TestSelectExactBoundaries(t *testing.T) {
	// A candidate exactly at minScore survives; spacing exactly at minSpacing
	// is allowed.
	candidates := []ScoredCandidate{
		candidate(0.3, 60*time.Second),
		candidate(0.3, 120*time.Second),
	}

	got := NewCandidateSelector().Select(candidates, 5, 0.3, time.Minute)
	if len(got) != 2 {
		t.Errorf("Select() returned %d, want 2 (boundaries are inclusive)", len(got))
	}
}
