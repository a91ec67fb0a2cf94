package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner executes external tools. ExecRunner is the production implementation;
// tests substitute a recorder.
type Runner interface {
	// CombinedOutput runs the tool and returns stdout and stderr together.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
	// Output runs the tool and returns stdout only.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools with os/exec. A zero Timeout means no deadline beyond
// the caller's context.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (r ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

func (r ExecRunner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

// Available returns true if the named binary is on the PATH.
func Available(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// EncoderError is returned when an encoder pass exits non-zero. Output holds
// the combined diagnostics of the failed invocation.
type EncoderError struct {
	Stage  string
	Err    error
	Output string
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("ffmpeg %s failed: %v\nOutput: %s", e.Stage, e.Err, e.Output)
}

func (e *EncoderError) Unwrap() error {
	return e.Err
}

// Encode runs one encoder pass, turning any failure into an *EncoderError.
func Encode(ctx context.Context, r Runner, bin, stage string, args ...string) error {
	out, err := r.CombinedOutput(ctx, bin, args...)
	if err != nil {
		return &EncoderError{Stage: stage, Err: err, Output: string(out)}
	}
	return nil
}

// ProbeDuration asks ffprobe for the container duration of path in seconds.
func ProbeDuration(ctx context.Context, r Runner, ffprobe, path string) (float64, error) {
	out, err := r.Output(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	raw := strings.TrimSpace(string(out))
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", raw, err)
	}
	if math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
		return 0, fmt.Errorf("ffprobe returned invalid duration %q", raw)
	}

	return dur, nil
}
