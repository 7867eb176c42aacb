package video

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mwhitby/summit/pkg/executor"
	"github.com/mwhitby/summit/pkg/logger"
)

// FFmpegOpener opens video files through ffmpeg/ffprobe subprocesses
type FFmpegOpener struct {
	ffmpegPath  string
	ffprobePath string
	exec        executor.Executor
	logger      *logger.Logger
}

// NewFFmpegOpener creates an Opener backed by the given ffmpeg/ffprobe binaries
func NewFFmpegOpener(ffmpegPath, ffprobePath string, exec executor.Executor, log *logger.Logger) *FFmpegOpener {
	return &FFmpegOpener{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		exec:        exec,
		logger:      log.Named("video"),
	}
}

// Open probes the file and returns a seekable Source
func (o *FFmpegOpener) Open(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file not accessible: %w", err)
	}

	out, err := o.exec.Run(ctx, o.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || secs <= 0 {
		return nil, fmt.Errorf("ffprobe returned invalid duration %q for %s", strings.TrimSpace(string(out)), path)
	}

	duration := time.Duration(secs * float64(time.Second))
	o.logger.Debug("Opened video",
		logger.String("path", path),
		logger.Duration("duration", duration))

	return &ffmpegSource{
		path:       path,
		duration:   duration,
		ffmpegPath: o.ffmpegPath,
		exec:       o.exec,
		logger:     o.logger,
	}, nil
}

type ffmpegSource struct {
	path       string
	duration   time.Duration
	ffmpegPath string
	exec       executor.Executor
	logger     *logger.Logger
}

func (s *ffmpegSource) Duration() time.Duration {
	return s.duration
}

func (s *ffmpegSource) FrameAt(ctx context.Context, ts time.Duration) ([]byte, error) {
	if ts < 0 || ts >= s.duration {
		return nil, fmt.Errorf("%w: %s (stream is %s)", ErrOutOfRange, ts, s.duration)
	}

	// -ss before -i performs a fast keyframe seek, then ffmpeg decodes
	// forward to the exact timestamp for the single requested frame.
	out, err := s.exec.Run(ctx, s.ffmpegPath,
		"-ss", fmt.Sprintf("%.3f", ts.Seconds()),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("frame decode at %s failed: %w", ts, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no frame decodable at %s", ErrOutOfRange, ts)
	}

	return out, nil
}

func (s *ffmpegSource) Close() error {
	// Frames are decoded per request; there is no persistent handle.
	return nil
}
