package meeting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/internal/config"
	"github.com/mwhitby/summit/internal/inference"
	"github.com/mwhitby/summit/internal/transcript"
	"github.com/mwhitby/summit/internal/usage"
	"github.com/mwhitby/summit/internal/writer"
	"github.com/mwhitby/summit/pkg/logger"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:04.000
<v Ana>Morning, let's get started</v>

00:00:05.000 --> 00:00:09.000
<v Ben>The release went out yesterday</v>
`

// fakeProvider is a concurrency-safe provider returning a fixed outcome
type fakeProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (p *fakeProvider) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &ai.Response{Text: p.text, InputTokens: 100, OutputTokens: 30}, nil
}

func (p *fakeProvider) Name() string { return "fake" }

// nopSleeper makes retry loops instantaneous
type nopSleeper struct{}

func (nopSleeper) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testConfig(inputDir string) *config.Config {
	cfg := &config.Config{
		Processing: config.Processing{InputDir: inputDir},
		Inference:  config.Inference{Model: "test-model"},
		OpenAI:     config.OpenAI{APIKey: "sk-test"},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newTestProcessor(t *testing.T, cfg *config.Config, provider ai.Provider) (*Processor, *usage.Ledger) {
	t.Helper()
	log := logger.NewNop()
	ledger := usage.NewLedger(usage.Pricing{})
	gateway := inference.NewGateway(provider, inference.BackoffPolicy{
		Base:             time.Millisecond,
		Cap:              time.Millisecond,
		MaxRetries:       2,
		TransientRetries: 2,
	}, ledger, log, inference.WithSleeper(nopSleeper{}))

	p := NewProcessor(
		transcript.NewVTTParser(log),
		nil, // keyframes disabled
		gateway,
		NewPromptBuilder(cfg.Summary),
		writer.New(log),
		cfg,
		log,
	)
	return p, ledger
}

func writeMeeting(t *testing.T, inputDir, name string) Meeting {
	t.Helper()
	dir := filepath.Join(inputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "transcript.vtt")
	if err := os.WriteFile(path, []byte(sampleVTT), 0644); err != nil {
		t.Fatal(err)
	}
	return Meeting{Name: name, Dir: dir, TranscriptPath: path}
}

func TestProcessSuccess(t *testing.T) {
	inputDir := t.TempDir()
	cfg := testConfig(inputDir)
	p, ledger := newTestProcessor(t, cfg, &fakeProvider{text: "A fine meeting."})
	m := writeMeeting(t, inputDir, "standup")

	res := p.Process(context.Background(), m)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %v, err = %v, want success", res.Status, res.Err)
	}
	if res.Summary != "A fine meeting." {
		t.Errorf("Summary = %q", res.Summary)
	}

	data, err := os.ReadFile(filepath.Join(m.Dir, "summary.md"))
	if err != nil {
		t.Fatalf("summary file not written: %v", err)
	}
	if !strings.Contains(string(data), "A fine meeting.") {
		t.Errorf("summary file missing content: %q", data)
	}

	if snap := ledger.Snapshot(); snap.Succeeded != 1 {
		t.Errorf("ledger = %+v, want one successful call", snap)
	}
}

func TestProcessMissingTranscript(t *testing.T) {
	inputDir := t.TempDir()
	cfg := testConfig(inputDir)
	p, _ := newTestProcessor(t, cfg, &fakeProvider{text: "x"})

	res := p.Process(context.Background(), Meeting{
		Name:           "ghost",
		Dir:            inputDir,
		TranscriptPath: filepath.Join(inputDir, "missing.vtt"),
	})
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
	if res.Err == nil {
		t.Error("Err = nil, want parse failure")
	}
}

func TestProcessClassifiesInferenceFailure(t *testing.T) {
	inputDir := t.TempDir()
	cfg := testConfig(inputDir)
	p, _ := newTestProcessor(t, cfg, &fakeProvider{err: ai.Throttled("rate limited", nil)})
	m := writeMeeting(t, inputDir, "standup")

	res := p.Process(context.Background(), m)
	if res.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", res.Status)
	}
	if res.ErrorKind != "throttled" {
		t.Errorf("ErrorKind = %q, want throttled", res.ErrorKind)
	}

	if _, err := os.Stat(filepath.Join(m.Dir, "summary.md")); !os.IsNotExist(err) {
		t.Error("summary file written for a failed meeting")
	}
}

func TestProcessCancelledContext(t *testing.T) {
	inputDir := t.TempDir()
	cfg := testConfig(inputDir)
	p, _ := newTestProcessor(t, cfg, &fakeProvider{text: "x"})
	m := writeMeeting(t, inputDir, "standup")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Process(ctx, m)
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
	if !res.Partial {
		t.Error("Partial = false, want true for cancellation")
	}
}

func TestServiceRunBatch(t *testing.T) {
	inputDir := t.TempDir()
	cfg := testConfig(inputDir)
	provider := &fakeProvider{text: "Summary text."}
	p, _ := newTestProcessor(t, cfg, provider)

	writeMeeting(t, inputDir, "alpha")
	writeMeeting(t, inputDir, "beta")

	log := logger.NewNop()
	ledger := usage.NewLedger(usage.Pricing{})
	gateway := inference.NewGateway(provider, inference.BackoffPolicy{
		Base: time.Millisecond, Cap: time.Millisecond, MaxRetries: 1, TransientRetries: 1,
	}, ledger, log, inference.WithSleeper(nopSleeper{}))
	svc := NewService(NewScanner(log), p, gateway, NewPromptBuilder(cfg.Summary), writer.New(log), cfg, log)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(run.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(run.Results))
	}
	for _, res := range run.Results {
		if res.Status != StatusSuccess {
			t.Errorf("meeting %s: status %v, err %v", res.Meeting.Name, res.Status, res.Err)
		}
	}

	// The aggregate pass ran after both meetings finished
	if run.GlobalErr != nil {
		t.Fatalf("GlobalErr = %v", run.GlobalErr)
	}
	if run.GlobalPath == "" {
		t.Fatal("GlobalPath empty, want global summary written")
	}
	if _, err := os.Stat(run.GlobalPath); err != nil {
		t.Errorf("global summary missing on disk: %v", err)
	}

	progress := svc.Progress()
	if progress.Completed != 2 || progress.Succeeded != 2 || progress.InFlight != 0 {
		t.Errorf("progress = %+v", progress)
	}
	if !progress.GlobalDone {
		t.Error("GlobalDone = false after run")
	}
}

func TestServiceSkipExisting(t *testing.T) {
	inputDir := t.TempDir()
	cfg := testConfig(inputDir)
	cfg.Processing.SkipExisting = true
	provider := &fakeProvider{text: "New summary."}
	p, _ := newTestProcessor(t, cfg, provider)

	m := writeMeeting(t, inputDir, "alpha")
	if err := os.WriteFile(filepath.Join(m.Dir, "summary.md"), []byte("# alpha\n\nOld summary."), 0644); err != nil {
		t.Fatal(err)
	}

	log := logger.NewNop()
	ledger := usage.NewLedger(usage.Pricing{})
	gateway := inference.NewGateway(provider, inference.BackoffPolicy{
		Base: time.Millisecond, Cap: time.Millisecond, MaxRetries: 1, TransientRetries: 1,
	}, ledger, log, inference.WithSleeper(nopSleeper{}))
	svc := NewService(NewScanner(log), p, gateway, NewPromptBuilder(cfg.Summary), writer.New(log), cfg, log)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Results[0].Status != StatusSkipped {
		t.Errorf("Status = %v, want skipped", run.Results[0].Status)
	}

	// The skipped meeting's previous summary still feeds the global pass
	data, err := os.ReadFile(run.GlobalPath)
	if err != nil {
		t.Fatalf("global summary missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("global summary empty")
	}
}
