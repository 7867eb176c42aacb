package video

import (
	"context"
	"errors"
	"time"
)

// ErrOutOfRange is returned when a requested timestamp is beyond the end of
// the stream.
var ErrOutOfRange = errors.New("timestamp out of range")

// Source is an open video stream supporting seek-by-time frame decoding.
// A Source is owned by one meeting's worker at a time; implementations are
// not required to be safe for concurrent use.
type Source interface {
	// Duration returns the total stream duration
	Duration() time.Duration

	// FrameAt returns the nearest decodable frame at or after the given
	// timestamp as encoded PNG bytes. Returns ErrOutOfRange when the
	// timestamp exceeds the stream duration.
	FrameAt(ctx context.Context, ts time.Duration) ([]byte, error)

	// Close releases the decoder handle
	Close() error
}

// Opener opens video files into Sources
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}
