package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Segment represents one timed piece of transcript text. Segments are
// immutable once parsed and ordered by start time.
type Segment struct {
	Start   time.Duration `json:"start"`
	End     time.Duration `json:"end"`
	Speaker string        `json:"speaker,omitempty"`
	Text    string        `json:"text"`
}

// Duration returns the length of the segment
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Transcript is an ordered sequence of segments for one meeting
type Transcript struct {
	Segments []Segment
}

// FullText returns the complete transcript as a single string,
// with speaker prefixes where available.
func (t *Transcript) FullText() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// TextWithTimestamps returns the transcript with a [HH:MM:SS] marker
// inserted every interval, so summaries can reference key moments.
func (t *Transcript) TextWithTimestamps(interval time.Duration) string {
	if interval <= 0 {
		return t.FullText()
	}

	var b strings.Builder
	nextMark := time.Duration(0)
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Start >= nextMark {
			b.WriteString(fmt.Sprintf("\n[%s]\n", FormatTimestamp(seg.Start)))
			nextMark = seg.Start + interval
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Speakers returns the distinct speaker names in order of first appearance
func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var speakers []string
	for _, seg := range t.Segments {
		if seg.Speaker != "" && !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			speakers = append(speakers, seg.Speaker)
		}
	}
	return speakers
}

// FormatTimestamp renders a duration as HH:MM:SS
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
