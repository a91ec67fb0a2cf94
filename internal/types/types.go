package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceHTTP   = "http"
	SourceUpload = "upload"
	SourceGDrive = "gdrive"
	SourceStream = "stream"
	SourceRedis  = "redis"
	SourceCLI    = "cli"
)

// Error kinds recorded for failed jobs
const (
	ErrorKindEncoder  = "encoder"
	ErrorKindInternal = "internal"
)

// Mode selects how the script is turned into frames.
type Mode string

const (
	ModeSlide      Mode = "slide"
	ModeTypewriter Mode = "typewriter"
)

// ParseMode maps user input to a Mode, falling back to def for anything unknown.
func ParseMode(s string, def Mode) Mode {
	switch Mode(s) {
	case ModeSlide, ModeTypewriter:
		return Mode(s)
	}
	return def
}

// RenderResult describes a finished render as handed to the delivery layer.
type RenderResult struct {
	JobID         string    `json:"job_id"`
	Mode          Mode      `json:"mode"`
	Language      string    `json:"language"`
	VideoPath     string    `json:"-"` // inside the workspace; gone once the job ends
	AudioDuration float64   `json:"audio_duration"`
	DurationKnown bool      `json:"duration_known"`
	Units         int       `json:"units"`
	Frames        int       `json:"frames"`
	HasBackground bool      `json:"has_background"`
	HasMusic      bool      `json:"has_music"`
	RenderedAt    time.Time `json:"rendered_at"`
	LocalPath     string    `json:"local_path,omitempty"`
	GDriveURL     string    `json:"gdrive_url,omitempty"`
}
