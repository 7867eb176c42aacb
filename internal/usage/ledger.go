package usage

import (
	"sync"
	"time"
)

// Outcome is the terminal state of one inference call
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Record is one append-only usage entry for a single inference call
type Record struct {
	Timestamp    time.Time
	Context      string // meeting name, or "global_summary"
	ModelID      string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	Attempts     int
	Outcome      Outcome
	ErrorKind    string // classified kind when Outcome is failed
}

// Pricing holds optional per-1K-token prices for cost estimation.
// Zero values disable the estimate.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Snapshot is a consistent point-in-time aggregate over all records
type Snapshot struct {
	Calls           int
	Succeeded       int
	Failed          int
	InputTokens     int64
	OutputTokens    int64
	TotalLatency    time.Duration
	MinLatency      time.Duration
	MaxLatency      time.Duration
	Retries         int // attempts beyond the first, summed over all calls
	EstimatedCost   float64
	CostEstimated   bool // false when no pricing is configured
	SessionDuration time.Duration
}

// TotalTokens returns input + output tokens
func (s Snapshot) TotalTokens() int64 {
	return s.InputTokens + s.OutputTokens
}

// AvgLatency returns the mean call latency
func (s Snapshot) AvgLatency() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Calls)
}

// Ledger accumulates usage records for one run. It is constructed once per
// run and injected into every component that records usage; Record is safe
// for concurrent use from in-flight gateway calls.
type Ledger struct {
	mu      sync.Mutex
	records []Record
	pricing Pricing
	start   time.Time
}

// NewLedger creates an empty ledger
func NewLedger(pricing Pricing) *Ledger {
	return &Ledger{
		pricing: pricing,
		start:   time.Now(),
	}
}

// Record appends one entry. It never fails.
func (l *Ledger) Record(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
}

// Snapshot returns aggregate statistics over everything recorded so far
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		SessionDuration: time.Since(l.start),
		CostEstimated:   l.pricing.InputPer1K > 0 || l.pricing.OutputPer1K > 0,
	}
	for _, r := range l.records {
		snap.Calls++
		if r.Outcome == OutcomeSuccess {
			snap.Succeeded++
		} else {
			snap.Failed++
		}
		snap.InputTokens += int64(r.InputTokens)
		snap.OutputTokens += int64(r.OutputTokens)
		snap.TotalLatency += r.Latency
		if r.Attempts > 1 {
			snap.Retries += r.Attempts - 1
		}
		if snap.MinLatency == 0 || r.Latency < snap.MinLatency {
			snap.MinLatency = r.Latency
		}
		if r.Latency > snap.MaxLatency {
			snap.MaxLatency = r.Latency
		}
	}
	if snap.CostEstimated {
		snap.EstimatedCost = float64(snap.InputTokens)/1000*l.pricing.InputPer1K +
			float64(snap.OutputTokens)/1000*l.pricing.OutputPer1K
	}
	return snap
}

// Records returns a copy of all entries, for the archive writer
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}
