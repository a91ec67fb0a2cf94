// Package workspace owns the per-job scratch directories. Every intermediate
// artifact of a render lives under exactly one job directory, which is removed
// when the job releases it.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Named artifacts inside a job directory.
const (
	AudioFile       = "audio.mp3"
	BackgroundFile  = "background.img"
	MusicFile       = "music.mp3"
	MixedAudioFile  = "mixed_audio.m4a"
	ManifestFile    = "concat.txt"
	SilentVideoFile = "video_only.mp4"
	FinalVideoFile  = "final_video.mp4"
)

var (
	ErrInvalidJobID = errors.New("invalid job id")
	ErrInUse        = errors.New("workspace already acquired")
)

// Workspace is the exclusive scratch directory of one job.
type Workspace struct {
	JobID string
	Dir   string
}

// Path returns the absolute path of a named artifact.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// FramePath returns the path of the i-th rendered frame image.
func (w *Workspace) FramePath(i int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("frame_%05d.png", i))
}

// Manager hands out job directories under a common root.
type Manager struct {
	root   string
	mu     sync.Mutex
	active map[string]struct{}
}

// NewManager creates a manager rooted at root. The root is created lazily.
func NewManager(root string) *Manager {
	return &Manager{
		root:   root,
		active: make(map[string]struct{}),
	}
}

// Root returns the directory holding all job workspaces.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates the job's directory. It fails if the job already holds a
// workspace or a directory with that name is left on disk.
func (m *Manager) Acquire(jobID string) (*Workspace, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[jobID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrInUse, jobID)
	}

	root, err := filepath.Abs(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}

	dir := filepath.Join(root, jobID)
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s exists on disk", ErrInUse, dir)
		}
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	m.active[jobID] = struct{}{}
	return &Workspace{JobID: jobID, Dir: dir}, nil
}

// Release removes the job's directory. It is safe to call more than once and
// after a failed Acquire.
func (m *Manager) Release(jobID string) error {
	if err := validateJobID(jobID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.active, jobID)
	m.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(m.root, jobID)); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", jobID, err)
	}
	return nil
}

// Active reports whether jobID currently holds a workspace.
func (m *Manager) Active(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[jobID]
	return ok
}

func validateJobID(jobID string) error {
	if jobID == "" || jobID == "." || jobID == ".." ||
		strings.ContainsAny(jobID, `/\`) || filepath.Base(jobID) != jobID {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return nil
}
