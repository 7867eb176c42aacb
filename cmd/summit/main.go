package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/internal/ai/gemini"
	"github.com/mwhitby/summit/internal/ai/openai"
	"github.com/mwhitby/summit/internal/api"
	"github.com/mwhitby/summit/internal/config"
	"github.com/mwhitby/summit/internal/inference"
	"github.com/mwhitby/summit/internal/keyframe"
	"github.com/mwhitby/summit/internal/meeting"
	"github.com/mwhitby/summit/internal/observability/metrics"
	"github.com/mwhitby/summit/internal/report"
	"github.com/mwhitby/summit/internal/storage/sqlite"
	"github.com/mwhitby/summit/internal/transcript"
	"github.com/mwhitby/summit/internal/usage"
	"github.com/mwhitby/summit/internal/video"
	"github.com/mwhitby/summit/internal/watcher"
	"github.com/mwhitby/summit/internal/writer"
	"github.com/mwhitby/summit/pkg/executor"
	"github.com/mwhitby/summit/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	watchFlag := flag.Bool("watch", false, "Keep running and process new meeting folders as they appear (overrides config)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *watchFlag {
		cfg.Processing.Watch = true
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting summit",
		logger.String("version", Version),
		logger.String("provider", cfg.Inference.Provider),
		logger.String("model", cfg.Inference.Model),
		logger.String("input_dir", cfg.Processing.InputDir),
	)

	// Cancel the run context on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("Received signal, shutting down", logger.String("signal", sig.String()))
		cancel()
	}()

	// Create AI provider
	provider, err := newProvider(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create AI provider", logger.Error(err))
		os.Exit(1)
	}

	// Create usage ledger and metrics
	ledger := usage.NewLedger(usage.Pricing{
		InputPer1K:  cfg.Pricing.InputPer1K,
		OutputPer1K: cfg.Pricing.OutputPer1K,
	})
	m := metrics.NewMetrics()

	// Create inference gateway
	policy := inference.BackoffPolicy{
		Base:             time.Duration(cfg.Inference.BackoffBaseMs) * time.Millisecond,
		Cap:              time.Duration(cfg.Inference.BackoffCapMs) * time.Millisecond,
		Jitter:           time.Duration(cfg.Inference.BackoffJitterMs) * time.Millisecond,
		MaxRetries:       cfg.Inference.MaxRetries,
		TransientRetries: cfg.Inference.TransientRetries,
	}
	gateway := inference.NewGateway(provider, policy, ledger, log, inference.WithMetrics(m))

	// Create keyframe extractor when enabled
	var extractor *keyframe.Extractor
	if cfg.Keyframes.Enabled {
		opener := video.NewFFmpegOpener(cfg.Keyframes.FFmpegPath, cfg.Keyframes.FFprobePath, executor.New(), log)
		extractor = keyframe.NewExtractor(opener, cfg.Keyframes.Delays, keyframe.Config{
			MaxFrames:       cfg.Keyframes.MaxFrames,
			MinScore:        cfg.Keyframes.MinRelevanceScore,
			MinSpacing:      time.Duration(cfg.Keyframes.MinSpacingSecs * float64(time.Second)),
			ContextSegments: cfg.Keyframes.ContextSegments,
		}, log)
	} else {
		log.Info("Keyframe extraction disabled in configuration")
	}

	// Create processing pipeline
	parser := transcript.NewVTTParser(log)
	prompts := meeting.NewPromptBuilder(cfg.Summary)
	w := writer.New(log)
	scanner := meeting.NewScanner(log)
	processor := meeting.NewProcessor(parser, extractor, gateway, prompts, w, cfg, log)
	service := meeting.NewService(scanner, processor, gateway, prompts, w, cfg, log)
	service.SetMetrics(m)

	// Create usage archive
	var archive *sqlite.UsageArchive
	if cfg.Storage.Enabled {
		if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
			log.Error("Failed to create storage directory", logger.Error(err),
				logger.String("path", cfg.Storage.SQLiteBasePath))
			os.Exit(1)
		}
		dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, "summit-usage.db")
		archive, err = sqlite.NewUsageArchive(dbPath, log)
		if err != nil {
			log.Error("Failed to create usage archive", logger.Error(err))
			os.Exit(1)
		}
		defer archive.Close()
	}

	// Start the status API server
	var apiServer *http.Server
	if cfg.API.Enabled {
		handler := api.NewHandler(service, ledger, archive, log)
		apiServer = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			Handler:      handler.Routes(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			log.Info("Starting status API server", logger.String("addr", apiServer.Addr))
			if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Status API server error", logger.Error(err))
			}
		}()
	}

	// Run the batch
	startedAt := time.Now()
	runSummary, err := service.Run(ctx)
	if err != nil {
		log.Error("Batch run failed", logger.Error(err))
		finalize(cfg, w, log, nil, ledger, archive, startedAt)
		shutdownAPI(apiServer, log)
		os.Exit(1)
	}

	// Watch mode: keep running and process new folders until interrupted
	if cfg.Processing.Watch && ctx.Err() == nil {
		runWatch(ctx, cfg, scanner, service, runSummary, log)
	}

	finalize(cfg, w, log, runSummary, ledger, archive, startedAt)
	shutdownAPI(apiServer, log)

	if runSummary != nil && runSummary.Cancelled {
		os.Exit(130)
	}
}

// newProvider builds the configured inference backend
func newProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (ai.Provider, error) {
	timeout := time.Duration(cfg.Inference.TimeoutSecs) * time.Second
	switch cfg.Inference.Provider {
	case "openai":
		return openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, timeout, log), nil
	case "gemini":
		return gemini.NewClient(ctx, cfg.Gemini.APIKey, log)
	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Inference.Provider)
	}
}

// runWatch blocks processing newly appearing meeting folders until the
// context is cancelled
func runWatch(ctx context.Context, cfg *config.Config, scanner *meeting.Scanner, service *meeting.Service, batch *meeting.RunSummary, log *logger.Logger) {
	handler := func(ctx context.Context, m meeting.Meeting) error {
		res := service.ProcessOne(ctx, m)
		if res.Err != nil {
			return res.Err
		}
		return nil
	}

	watch, err := watcher.New(cfg.Processing.InputDir, scanner, handler, log)
	if err != nil {
		log.Error("Failed to start watch mode", logger.Error(err))
		return
	}
	defer watch.Stop()

	// Meetings handled by the initial batch are not reprocessed
	if batch != nil {
		dirs := make([]string, 0, len(batch.Results))
		for _, res := range batch.Results {
			dirs = append(dirs, res.Meeting.Dir)
		}
		watch.MarkProcessed(dirs...)
	}

	if err := watch.Start(ctx); err != nil && err != context.Canceled {
		log.Error("Watch mode ended with error", logger.Error(err))
	}
}

// finalize writes the run report and archives usage records
func finalize(cfg *config.Config, w *writer.Writer, log *logger.Logger, runSummary *meeting.RunSummary, ledger *usage.Ledger, archive *sqlite.UsageArchive, startedAt time.Time) {
	snap := ledger.Snapshot()

	if runSummary != nil {
		reportPath := filepath.Join(cfg.Processing.InputDir, cfg.Processing.ReportFilename)
		content := report.Build(runSummary, snap, cfg.Inference.Model)
		if err := w.WriteFile(reportPath, []byte(content)); err != nil {
			log.Error("Failed to write run report", logger.Error(err))
		} else {
			log.Info("Wrote run report", logger.String("path", reportPath))
		}
	}

	if archive != nil {
		info := sqlite.RunInfo{
			StartedAt:    startedAt,
			FinishedAt:   time.Now(),
			Model:        cfg.Inference.Model,
			InputTokens:  snap.InputTokens,
			OutputTokens: snap.OutputTokens,
		}
		if snap.CostEstimated {
			info.EstimatedCost = snap.EstimatedCost
		}
		if runSummary != nil {
			info.MeetingsTotal = len(runSummary.Results)
			for _, res := range runSummary.Results {
				switch res.Status {
				case meeting.StatusSuccess:
					info.Succeeded++
				case meeting.StatusSkipped:
					info.Skipped++
				default:
					info.Failed++
				}
			}
		}
		if runID, err := archive.ArchiveRun(info, ledger.Records()); err != nil {
			log.Error("Failed to archive run", logger.Error(err))
		} else {
			log.Info("Archived run usage", logger.String("run_id", runID))
		}
	}

	log.Info("Run complete",
		logger.Int("inference_calls", snap.Calls),
		logger.Int64("total_tokens", snap.TotalTokens()),
		logger.Duration("duration", snap.SessionDuration),
	)
}

// shutdownAPI gracefully stops the status API server
func shutdownAPI(server *http.Server, log *logger.Logger) {
	if server == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Status API server shutdown error", logger.Error(err))
	}
}
