package transcript

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference means the input yields no 11-character video id.
	ErrInvalidReference = errors.New("invalid YouTube URL / videoId not found")

	// ErrNoTranscript means every candidate across both sources failed.
	ErrNoTranscript = errors.New("no transcript available for this video")

	errEmptyTranscript = errors.New("empty transcript")
)

// UnavailableError is returned when all candidates are exhausted.
// errors.Is(err, ErrNoTranscript) holds; Unwrap exposes the last attempt failure.
type UnavailableError struct {
	VideoID  string
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string {
	if e.Last == nil {
		return ErrNoTranscript.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoTranscript.Error(), e.Last)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrNoTranscript
}

func (e *UnavailableError) Unwrap() error {
	return e.Last
}
