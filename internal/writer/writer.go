package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwhitby/summit/internal/keyframe"
	"github.com/mwhitby/summit/internal/transcript"
	"github.com/mwhitby/summit/pkg/logger"
)

// Writer persists summaries, keyframe images and reports. All writes go
// through a temp file followed by rename, so a cancelled run never leaves a
// half-written artifact behind.
type Writer struct {
	logger *logger.Logger
}

// New creates a Writer
func New(log *logger.Logger) *Writer {
	return &Writer{logger: log.Named("writer")}
}

// WriteSummary writes a meeting summary markdown file into dir. Keyframes,
// if any, are appended as an illustrated timeline section referencing the
// already-written image files.
func (w *Writer) WriteSummary(dir, filename, title, summary string, keyframes []keyframe.Keyframe) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", title))
	b.WriteString(fmt.Sprintf("_Generated %s_\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")

	if len(keyframes) > 0 {
		b.WriteString("\n## Key Moments\n\n")
		for _, kf := range keyframes {
			rel := kf.ImagePath
			if r, err := filepath.Rel(dir, kf.ImagePath); err == nil {
				rel = r
			}
			b.WriteString(fmt.Sprintf("### %s\n\n", transcript.FormatTimestamp(kf.Timestamp)))
			b.WriteString(fmt.Sprintf("![%s](%s)\n\n", transcript.FormatTimestamp(kf.Timestamp), filepath.ToSlash(rel)))
			if kf.Context != "" {
				b.WriteString(fmt.Sprintf("> %s\n\n", kf.Context))
			}
		}
	}

	path := filepath.Join(dir, filename)
	if err := w.writeAtomic(path, []byte(b.String())); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	w.logger.Info("Wrote summary", logger.String("path", path))
	return path, nil
}

// WriteKeyframes writes each keyframe's PNG into dir/imageDirName and fills
// in the ImagePath of every written frame. Frames that fail to write are
// skipped with a warning.
func (w *Writer) WriteKeyframes(dir, imageDirName, baseName string, keyframes []keyframe.Keyframe) []keyframe.Keyframe {
	if len(keyframes) == 0 {
		return keyframes
	}

	imageDir := filepath.Join(dir, imageDirName)
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		w.logger.Warn("Failed to create keyframe directory", logger.String("dir", imageDir), logger.Error(err))
		return nil
	}

	written := make([]keyframe.Keyframe, 0, len(keyframes))
	for i, kf := range keyframes {
		name := fmt.Sprintf("%s_%d.png", baseName, i+1)
		path := filepath.Join(imageDir, name)
		if err := w.writeAtomic(path, kf.Image); err != nil {
			w.logger.Warn("Failed to write keyframe image", logger.String("path", path), logger.Error(err))
			continue
		}
		kf.ImagePath = path
		kf.Image = nil // image bytes are on disk now
		written = append(written, kf)
	}

	w.logger.Debug("Wrote keyframe images",
		logger.String("dir", imageDir),
		logger.Int("count", len(written)))
	return written
}

// WriteFile writes arbitrary content atomically
func (w *Writer) WriteFile(path string, content []byte) error {
	return w.writeAtomic(path, content)
}

func (w *Writer) writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Chmod(path, 0644)
}
