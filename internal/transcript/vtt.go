package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mwhitby/summit/pkg/logger"
)

var (
	timingLineRE = regexp.MustCompile(`^(\S+)\s+-->\s+(\S+)`)
	voiceTagRE   = regexp.MustCompile(`<v(?:\.[^ >]*)?\s+([^>]+)>`)
	markupRE     = regexp.MustCompile(`<[^>]+>`)
	speakerRE    = regexp.MustCompile(`^([A-Za-z][A-Za-z .'-]{0,40}):\s+(.*)$`)
)

// VTTParser parses WebVTT transcript files into ordered segments
type VTTParser struct {
	logger *logger.Logger
}

// NewVTTParser creates a new VTT parser
func NewVTTParser(log *logger.Logger) *VTTParser {
	return &VTTParser{logger: log.Named("vtt")}
}

// ParseFile parses the VTT file at the given path
func (p *VTTParser) ParseFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open VTT file: %w", err)
	}
	defer f.Close()

	t, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	p.logger.Debug("Parsed VTT file",
		logger.String("path", path),
		logger.Int("segments", len(t.Segments)))
	return t, nil
}

// Parse reads WebVTT content and returns the transcript. Malformed cues are
// skipped with a warning rather than failing the whole file.
func (p *VTTParser) Parse(r io.Reader) (*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("empty file")
	}
	header := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "\uFEFF")
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, fmt.Errorf("missing WEBVTT header")
	}

	t := &Transcript{}
	var (
		inCue     bool
		start     time.Duration
		end       time.Duration
		textLines []string
	)

	flush := func() {
		if !inCue {
			return
		}
		seg, ok := p.buildSegment(start, end, textLines)
		if ok {
			t.Segments = append(t.Segments, seg)
		}
		inCue = false
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}
		// NOTE and STYLE blocks are metadata, not cues
		if !inCue && (strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE")) {
			continue
		}

		if m := timingLineRE.FindStringSubmatch(trimmed); m != nil {
			flush()
			s, errS := parseVTTTimestamp(m[1])
			e, errE := parseVTTTimestamp(m[2])
			if errS != nil || errE != nil || e < s {
				p.logger.Warn("Skipping malformed cue timing", logger.String("line", trimmed))
				continue
			}
			inCue = true
			start, end = s, e
			continue
		}

		if inCue {
			textLines = append(textLines, line)
		}
		// Lines before a timing line are cue identifiers; ignored.
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	return t, nil
}

// buildSegment cleans cue text and extracts the speaker. Empty segments are
// dropped (ok=false) so downstream scoring never sees blank text.
func (p *VTTParser) buildSegment(start, end time.Duration, lines []string) (Segment, bool) {
	raw := strings.TrimSpace(strings.Join(lines, " "))
	if raw == "" {
		return Segment{}, false
	}

	speaker := ""
	if m := voiceTagRE.FindStringSubmatch(raw); m != nil {
		speaker = strings.TrimSpace(m[1])
	}
	text := markupRE.ReplaceAllString(raw, "")
	text = strings.Join(strings.Fields(text), " ")

	if speaker == "" {
		if m := speakerRE.FindStringSubmatch(text); m != nil {
			speaker = strings.TrimSpace(m[1])
			text = strings.TrimSpace(m[2])
		}
	}

	if text == "" {
		return Segment{}, false
	}

	return Segment{Start: start, End: end, Speaker: speaker, Text: text}, true
}

// parseVTTTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm"
func parseVTTTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var hours, minutes int
	var secPart string
	var err error

	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		secPart = parts[2]
	} else {
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		secPart = parts[1]
	}

	seconds, err := strconv.ParseFloat(secPart, 64)
	if err != nil || seconds < 0 || seconds >= 60 || hours < 0 || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, nil
}
