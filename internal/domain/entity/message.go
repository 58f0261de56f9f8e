package entity

import "github.com/google/uuid"

// CaptureRequestMessage is the inbound message from the video.capture queue.
// Bounds and policy fields are optional; zero values fall back to the
// worker's configured defaults.
type CaptureRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`

	// From/To bound the captured span in seconds. To <= 0 means "end of
	// stream".
	From float64 `json:"from,omitempty"`
	To   float64 `json:"to,omitempty"`

	// EndOffset trims the tail of the span. A value ending in '%' is
	// resolved against the effective end; otherwise it is absolute seconds.
	EndOffset string `json:"end_offset,omitempty"`

	// Interval selects the fixed-interval policy; Count the fixed-count
	// policy. At most one may be set per request.
	Interval float64 `json:"interval,omitempty"`
	Count    int     `json:"count,omitempty"`

	// ManualTimestamps are unioned into the generated schedule.
	ManualTimestamps []float64 `json:"manual_timestamps,omitempty"`
}

// CaptureStatusMessage is the outbound message published to the video.status
// queue.
type CaptureStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	VideoKey     string    `json:"video_key"`
	StillsKey    string    `json:"stills_key,omitempty"`
	CaptureCount int       `json:"capture_count,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	QuirksUsed   bool      `json:"quirks_used,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
