package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/internal/config"
	"github.com/mwhitby/summit/internal/inference"
	"github.com/mwhitby/summit/internal/keyframe"
	"github.com/mwhitby/summit/internal/transcript"
	"github.com/mwhitby/summit/internal/writer"
	"github.com/mwhitby/summit/pkg/logger"
)

// timestampInterval is how often timestamp markers are inserted into the
// transcript rendered for prompts
const timestampInterval = 5 * time.Minute

// Processor handles a single meeting end to end: transcript parsing,
// keyframe extraction, summarization and output writing.
type Processor struct {
	parser    *transcript.VTTParser
	extractor *keyframe.Extractor // nil when keyframe extraction is disabled
	gateway   *inference.Gateway
	prompts   *PromptBuilder
	writer    *writer.Writer
	cfg       *config.Config
	logger    *logger.Logger
}

// NewProcessor creates a Processor. extractor may be nil to disable
// keyframe extraction entirely.
func NewProcessor(
	parser *transcript.VTTParser,
	extractor *keyframe.Extractor,
	gateway *inference.Gateway,
	prompts *PromptBuilder,
	w *writer.Writer,
	cfg *config.Config,
	log *logger.Logger,
) *Processor {
	return &Processor{
		parser:    parser,
		extractor: extractor,
		gateway:   gateway,
		prompts:   prompts,
		writer:    w,
		cfg:       cfg,
		logger:    log.Named("processor"),
	}
}

// Process runs one meeting to a terminal state. Errors below the meeting
// level (bad segments, undecodable frames) are recovered internally; the
// returned Result reports the meeting-level outcome.
func (p *Processor) Process(ctx context.Context, m Meeting) Result {
	start := time.Now()
	p.logger.Info("Processing meeting",
		logger.String("meeting", m.Name),
		logger.Bool("has_video", m.HasVideo()))

	t, err := p.parser.ParseFile(m.TranscriptPath)
	if err != nil {
		return p.failed(m, start, fmt.Errorf("transcript parse: %w", err), "")
	}
	if len(t.Segments) == 0 {
		return p.failed(m, start, fmt.Errorf("transcript %s has no usable segments", m.TranscriptPath), "")
	}

	// Keyframes before summarization: a meeting without video simply skips
	// extraction; an unreadable video loses its keyframes but still gets a
	// summary.
	var keyframes []keyframe.Keyframe
	if p.extractor != nil && m.HasVideo() {
		frames, err := p.extractor.Extract(ctx, t.Segments, m.VideoPath)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("Keyframe extraction failed, continuing without frames",
				logger.String("meeting", m.Name),
				logger.Error(err))
		}
		if len(frames) > 0 {
			keyframes = p.writer.WriteKeyframes(m.Dir, p.cfg.Keyframes.ImageDirName, m.Name, frames)
		}
	}
	if ctx.Err() != nil {
		return p.cancelled(m, start, keyframes)
	}

	var transcriptText string
	if p.cfg.Summary.IncludeTimestamps {
		transcriptText = t.TextWithTimestamps(timestampInterval)
	} else {
		transcriptText = t.FullText()
	}

	result, err := p.gateway.Invoke(ctx, m.Name, ai.Request{
		Model:       p.cfg.Inference.Model,
		Prompt:      p.prompts.MeetingPrompt(m.Name, transcriptText),
		MaxTokens:   p.cfg.Inference.MaxTokens,
		Temperature: p.cfg.Inference.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return p.cancelled(m, start, keyframes)
		}
		kind := ""
		var failed *inference.FailedError
		if errors.As(err, &failed) {
			kind = failed.Kind.String()
		}
		return p.failed(m, start, err, kind)
	}

	summaryPath, err := p.writer.WriteSummary(m.Dir, p.cfg.Processing.OutputFilename, m.Name, result.Text, keyframes)
	if err != nil {
		return p.failed(m, start, err, "")
	}

	p.logger.Info("Meeting processed",
		logger.String("meeting", m.Name),
		logger.Int("keyframes", len(keyframes)),
		logger.Int("attempts", result.Attempts),
		logger.Duration("elapsed", time.Since(start)))

	return Result{
		Meeting:     m,
		Status:      StatusSuccess,
		Summary:     result.Text,
		SummaryPath: summaryPath,
		Keyframes:   keyframes,
		Duration:    time.Since(start),
	}
}

func (p *Processor) failed(m Meeting, start time.Time, err error, kind string) Result {
	p.logger.Error("Meeting failed",
		logger.String("meeting", m.Name),
		logger.Error(err))
	return Result{
		Meeting:   m,
		Status:    StatusFailed,
		Duration:  time.Since(start),
		Err:       err,
		ErrorKind: kind,
	}
}

func (p *Processor) cancelled(m Meeting, start time.Time, keyframes []keyframe.Keyframe) Result {
	return Result{
		Meeting:   m,
		Status:    StatusFailed,
		Keyframes: keyframes,
		Duration:  time.Since(start),
		Err:       context.Canceled,
		Partial:   true,
	}
}
