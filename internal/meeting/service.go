package meeting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/internal/config"
	"github.com/mwhitby/summit/internal/inference"
	"github.com/mwhitby/summit/internal/observability/metrics"
	"github.com/mwhitby/summit/internal/writer"
	"github.com/mwhitby/summit/pkg/logger"
)

// GlobalLabel is the usage-ledger context for the cross-meeting pass
const GlobalLabel = "global_summary"

// Progress is a point-in-time view of a running batch, served by the status
// API.
type Progress struct {
	Running    bool `json:"running"`
	Total      int  `json:"total"`
	InFlight   int  `json:"in_flight"`
	Completed  int  `json:"completed"`
	Succeeded  int  `json:"succeeded"`
	Failed     int  `json:"failed"`
	Skipped    int  `json:"skipped"`
	GlobalDone bool `json:"global_done"`
}

// RunSummary is the outcome of one batch run
type RunSummary struct {
	Results       []Result
	GlobalSummary string
	GlobalPath    string
	GlobalErr     error
	Cancelled     bool
}

// Service orchestrates a batch: one worker per meeting folder, bounded by a
// semaphore sized from the inference concurrency limit. The global pass
// starts only after every meeting reached a terminal state.
type Service struct {
	scanner   *Scanner
	processor *Processor
	gateway   *inference.Gateway
	prompts   *PromptBuilder
	writer    *writer.Writer
	cfg       *config.Config
	metrics   *metrics.Metrics
	logger    *logger.Logger

	mu       sync.Mutex
	progress Progress
}

// SetMetrics enables Prometheus instrumentation of meeting outcomes
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// NewService creates a batch Service
func NewService(
	scanner *Scanner,
	processor *Processor,
	gateway *inference.Gateway,
	prompts *PromptBuilder,
	w *writer.Writer,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		scanner:   scanner,
		processor: processor,
		gateway:   gateway,
		prompts:   prompts,
		writer:    w,
		cfg:       cfg,
		logger:    log.Named("batch"),
	}
}

// Progress returns a consistent snapshot of the batch state
func (s *Service) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Run processes every meeting under the configured input directory, then
// the global pass. Per-meeting failures never abort the batch; only a
// cancelled context stops new work.
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	meetings, err := s.scanner.Scan(s.cfg.Processing.InputDir)
	if err != nil {
		return nil, err
	}
	return s.RunMeetings(ctx, meetings)
}

// RunMeetings processes the given meetings. Used by Run and by watch mode,
// which discovers folders incrementally.
func (s *Service) RunMeetings(ctx context.Context, meetings []Meeting) (*RunSummary, error) {
	if len(meetings) == 0 {
		s.logger.Warn("No meetings to process")
		return &RunSummary{}, nil
	}

	s.mu.Lock()
	s.progress = Progress{Running: true, Total: len(meetings)}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.progress.Running = false
		s.mu.Unlock()
	}()

	results := make([]Result, len(meetings))
	sem := make(chan struct{}, s.cfg.Inference.ConcurrentMeetings)
	var wg sync.WaitGroup

	for i, m := range meetings {
		if s.cfg.Processing.SkipExisting && s.hasExistingSummary(m) {
			s.logger.Info("Skipping meeting with existing summary", logger.String("meeting", m.Name))
			results[i] = Result{Meeting: m, Status: StatusSkipped}
			s.update(func(p *Progress) { p.Completed++; p.Skipped++ })
			if s.metrics != nil {
				s.metrics.RecordMeetingSkipped()
			}
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = Result{Meeting: m, Status: StatusFailed, Err: ctx.Err(), Partial: true}
			s.update(func(p *Progress) { p.Completed++; p.Failed++ })
			continue
		}

		wg.Add(1)
		s.update(func(p *Progress) { p.InFlight++ })
		go func(idx int, m Meeting) {
			defer wg.Done()
			defer func() { <-sem }()

			if s.metrics != nil {
				s.metrics.RecordMeetingStart()
			}
			res := s.processor.Process(ctx, m)
			results[idx] = res
			if s.metrics != nil {
				s.metrics.RecordMeetingEnd(res.Status == StatusSuccess, res.Duration.Seconds())
				s.metrics.RecordKeyframes(len(res.Keyframes))
			}
			s.update(func(p *Progress) {
				p.InFlight--
				p.Completed++
				switch res.Status {
				case StatusSuccess:
					p.Succeeded++
				default:
					p.Failed++
				}
			})
		}(i, m)
	}

	// The global pass must not start until every meeting is terminal
	wg.Wait()

	summary := &RunSummary{Results: results, Cancelled: ctx.Err() != nil}
	if ctx.Err() != nil {
		s.logger.Warn("Run cancelled, skipping global summary")
		return summary, nil
	}

	s.runGlobalPass(ctx, summary)
	s.update(func(p *Progress) { p.GlobalDone = true })
	return summary, nil
}

// ProcessOne runs a single meeting to a terminal state, outside any batch.
// Used by watch mode when a new folder appears.
func (s *Service) ProcessOne(ctx context.Context, m Meeting) Result {
	if s.cfg.Processing.SkipExisting && s.hasExistingSummary(m) {
		s.logger.Info("Skipping meeting with existing summary", logger.String("meeting", m.Name))
		if s.metrics != nil {
			s.metrics.RecordMeetingSkipped()
		}
		return Result{Meeting: m, Status: StatusSkipped}
	}

	s.update(func(p *Progress) { p.Total++; p.InFlight++ })
	if s.metrics != nil {
		s.metrics.RecordMeetingStart()
	}

	res := s.processor.Process(ctx, m)

	s.update(func(p *Progress) {
		p.InFlight--
		p.Completed++
		if res.Status == StatusSuccess {
			p.Succeeded++
		} else {
			p.Failed++
		}
	})
	if s.metrics != nil {
		s.metrics.RecordMeetingEnd(res.Status == StatusSuccess, res.Duration.Seconds())
		s.metrics.RecordKeyframes(len(res.Keyframes))
	}
	return res
}

// runGlobalPass aggregates the individual summaries into one master summary
func (s *Service) runGlobalPass(ctx context.Context, summary *RunSummary) {
	texts := make(map[string]string)
	for _, res := range summary.Results {
		switch res.Status {
		case StatusSuccess:
			texts[res.Meeting.Name] = res.Summary
		case StatusSkipped:
			// Re-read summaries written by a previous run so skipped
			// meetings still contribute to the aggregate.
			path := filepath.Join(res.Meeting.Dir, s.cfg.Processing.OutputFilename)
			if data, err := os.ReadFile(path); err == nil {
				texts[res.Meeting.Name] = string(data)
			}
		}
	}

	if len(texts) == 0 {
		s.logger.Warn("No individual summaries available, skipping global summary")
		return
	}

	order := make([]string, 0, len(texts))
	for name := range texts {
		order = append(order, name)
	}
	sort.Strings(order)

	s.logger.Info("Generating global summary", logger.Int("summaries", len(texts)))

	result, err := s.gateway.Invoke(ctx, GlobalLabel, ai.Request{
		Model:       s.cfg.Inference.Model,
		Prompt:      s.prompts.GlobalPrompt(texts, order),
		MaxTokens:   s.cfg.Inference.MaxTokens,
		Temperature: s.cfg.Inference.Temperature,
	})
	if err != nil {
		summary.GlobalErr = fmt.Errorf("global summary: %w", err)
		return
	}

	path := filepath.Join(s.cfg.Processing.InputDir, s.cfg.Processing.GlobalSummaryFilename)
	header := fmt.Sprintf("# Global Summary\n\nAggregated from %d meeting(s).\n\n", len(texts))
	if err := s.writer.WriteFile(path, []byte(header+result.Text+"\n")); err != nil {
		summary.GlobalErr = fmt.Errorf("failed to write global summary: %w", err)
		return
	}

	summary.GlobalSummary = result.Text
	summary.GlobalPath = path
	s.logger.Info("Wrote global summary", logger.String("path", path))
}

func (s *Service) hasExistingSummary(m Meeting) bool {
	_, err := os.Stat(filepath.Join(m.Dir, s.cfg.Processing.OutputFilename))
	return err == nil
}

func (s *Service) update(f func(*Progress)) {
	s.mu.Lock()
	f(&s.progress)
	s.mu.Unlock()
}
