package meeting

import (
	"time"

	"github.com/mwhitby/summit/internal/keyframe"
)

// Meeting is one discovered meeting folder
type Meeting struct {
	Name           string // folder name
	Dir            string
	TranscriptPath string
	VideoPath      string // empty when the meeting has no recording
}

// HasVideo reports whether a recording was found for the meeting
func (m Meeting) HasVideo() bool {
	return m.VideoPath != ""
}

// Status is the terminal state of one meeting's processing
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of processing one meeting
type Result struct {
	Meeting     Meeting
	Status      Status
	Summary     string
	SummaryPath string
	Keyframes   []keyframe.Keyframe
	Duration    time.Duration
	Err         error
	ErrorKind   string // classified kind for failed inference
	Partial     bool   // cancellation interrupted the meeting mid-flight
}
