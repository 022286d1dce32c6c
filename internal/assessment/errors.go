package assessment

import "errors"

// Rejection reasons surfaced to the transport layer. Anything else the
// pipeline hits degrades to a fallback evaluation instead of failing the
// request.
var (
	// ErrSessionNotFound means the session does not exist or is past the
	// retention window.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrInvalidPart means the part id is not in the catalog.
	ErrInvalidPart = errors.New("invalid part ID")

	// ErrAlreadyCompleted means the part already has a stored evaluation
	// for this session.
	ErrAlreadyCompleted = errors.New("part already completed")

	// ErrMissingAudio means the audio part was submitted without a
	// usable recording.
	ErrMissingAudio = errors.New("audio recording is required for this part")
)
