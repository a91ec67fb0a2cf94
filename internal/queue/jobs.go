package queue

import (
	"strings"
	"sync"
	"time"

	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

// Job represents a render job
type Job struct {
	ID         string
	SourceType string
	Request    render.Job
	CreatedAt  time.Time

	// OnDone runs on the worker goroutine after the job reaches a terminal
	// status.
	OnDone func(*Job)

	mu        sync.Mutex
	status    string
	err       error
	errorKind string
	result    *types.RenderResult
	done      chan struct{}
}

// NewJob creates a new job with default values
func NewJob(sourceType string, req render.Job) *Job {
	return &Job{
		ID:         req.ID,
		SourceType: sourceType,
		Request:    req,
		status:     types.StatusQueued,
		CreatedAt:  time.Now(),
		done:       make(chan struct{}),
	}
}

// Snapshot is a point-in-time copy of a job's state.
type Snapshot struct {
	ID         string              `json:"job_id"`
	SourceType string              `json:"source"`
	Mode       types.Mode          `json:"mode"`
	Language   string              `json:"language"`
	Status     string              `json:"status"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	Error      string              `json:"error,omitempty"`
	Message    string              `json:"message,omitempty"`
	Result     *types.RenderResult `json:"result,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Snapshot returns the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		ID:         j.ID,
		SourceType: j.SourceType,
		Mode:       j.Request.Mode,
		Language:   j.Request.Language,
		Status:     j.status,
		ErrorKind:  j.errorKind,
		Result:     j.result,
		CreatedAt:  j.CreatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.status == types.StatusCompleted || j.status == types.StatusFailed {
		s.Message = render.OutcomeMessage(j.err)
	}
	return s
}

// Status returns the job's current status.
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the failure of a finished job, or nil.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Result returns the render result of a completed job.
func (j *Job) Result() *types.RenderResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Done is closed once the job is COMPLETED or FAILED.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) setStatus(status string) {
	j.mu.Lock()
	j.status = status
	j.mu.Unlock()
}

// finish records the terminal state exactly once. Done is closed separately
// by markDone once bookkeeping and callbacks have run.
func (j *Job) finish(res *types.RenderResult, err error) bool {
	j.mu.Lock()
	if j.status == types.StatusCompleted || j.status == types.StatusFailed {
		j.mu.Unlock()
		return false
	}
	if err != nil {
		j.status = types.StatusFailed
		j.err = err
		j.errorKind = errorKind(err)
	} else {
		j.status = types.StatusCompleted
		j.result = res
	}
	j.mu.Unlock()
	return true
}

// markDone releases waiters on Done.
func (j *Job) markDone() {
	close(j.done)
}

func (j *Job) finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status == types.StatusCompleted || j.status == types.StatusFailed
}

func errorKind(err error) string {
	if render.IsEncoderError(err) {
		return types.ErrorKindEncoder
	}
	return types.ErrorKindInternal
}

// Defaults fills and validates incoming render requests.
type Defaults struct {
	Mode     types.Mode
	Language string
	Slow     bool
	MinChars int
	MaxChars int
}

// Build turns transport input into a validated render request. Empty fields
// take the defaults; slow may be nil.
func (d Defaults) Build(id, script, mode, language string, slow *bool) (render.Job, error) {
	script = strings.TrimSpace(script)
	if err := render.ValidateScript(script, d.MinChars, d.MaxChars); err != nil {
		return render.Job{}, err
	}

	def := d.Mode
	if def == "" {
		def = types.ModeTypewriter
	}
	job := render.Job{
		ID:       id,
		Script:   script,
		Mode:     types.ParseMode(mode, def),
		Language: language,
		Slow:     d.Slow,
	}
	if job.Language == "" {
		job.Language = d.Language
	}
	if job.Language == "" {
		job.Language = "hi"
	}
	if slow != nil {
		job.Slow = *slow
	}
	return job, nil
}
