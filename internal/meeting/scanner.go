package meeting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mwhitby/summit/pkg/logger"
)

var videoExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".m4v"}

// Scanner discovers meeting folders under an input directory
type Scanner struct {
	logger *logger.Logger
}

// NewScanner creates a Scanner
func NewScanner(log *logger.Logger) *Scanner {
	return &Scanner{logger: log.Named("scanner")}
}

// Scan returns one Meeting per subfolder of inputDir that contains a .vtt
// transcript, paired with the folder's first video file when present.
// Folders without a transcript are skipped with a warning. Results are
// sorted by folder name.
func (s *Scanner) Scan(inputDir string) ([]Meeting, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var meetings []Meeting
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(inputDir, entry.Name())

		m, ok, err := s.ScanFolder(dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn("Skipping folder without transcript", logger.String("dir", dir))
			continue
		}
		meetings = append(meetings, m)
	}

	sort.Slice(meetings, func(i, j int) bool { return meetings[i].Name < meetings[j].Name })

	s.logger.Info("Scanned input directory",
		logger.String("dir", inputDir),
		logger.Int("meetings", len(meetings)))
	return meetings, nil
}

// ScanFolder inspects a single meeting folder. ok is false when no
// transcript was found.
func (s *Scanner) ScanFolder(dir string) (Meeting, bool, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return Meeting{}, false, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var transcriptPath, videoPath string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if ext == ".vtt" && transcriptPath == "" {
			transcriptPath = filepath.Join(dir, f.Name())
		}
		if videoPath == "" && isVideoExt(ext) {
			videoPath = filepath.Join(dir, f.Name())
		}
	}

	if transcriptPath == "" {
		return Meeting{}, false, nil
	}

	return Meeting{
		Name:           filepath.Base(dir),
		Dir:            dir,
		TranscriptPath: transcriptPath,
		VideoPath:      videoPath,
	}, true, nil
}

func isVideoExt(ext string) bool {
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}
