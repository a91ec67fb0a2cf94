package cleanup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// JobPruner forgets finished in-memory jobs.
type JobPruner interface {
	PruneJobs(maxAge time.Duration) int
}

// Scheduler periodically removes abandoned job workspaces and expired videos
type Scheduler struct {
	workspaceRoot   string
	outputDir       string
	intervalMinutes int
	maxAgeHours     int
	outputMaxDays   int

	// Active reports whether a workspace is owned by a running job; those
	// directories are never swept.
	Active func(jobID string) bool
	Pruner JobPruner

	cron *cron.Cron
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Workspaces int
	Outputs    int
	FreedBytes int64
	PrunedJobs int
}

// NewScheduler creates a new cleanup scheduler. A non-positive outputMaxDays
// keeps videos forever.
func NewScheduler(workspaceRoot, outputDir string, intervalMinutes, maxAgeHours, outputMaxDays int) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 30
	}
	return &Scheduler{
		workspaceRoot:   workspaceRoot,
		outputDir:       outputDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		outputMaxDays:   outputMaxDays,
		cron:            cron.New(),
	}
}

// Start runs an initial sweep and schedules the periodic one
func (s *Scheduler) Start() error {
	log.Println("Running initial workspace cleanup...")
	s.Sweep()

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", s.intervalMinutes), func() { s.Sweep() }); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	s.cron.Start()

	log.Printf("Cleanup scheduler started (interval: %dm, workspace max age: %dh, output max age: %dd)",
		s.intervalMinutes, s.maxAgeHours, s.outputMaxDays)
	return nil
}

// Stop stops the cleanup scheduler and waits for a running sweep
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Cleanup scheduler stopped")
}

// Sweep performs one cleanup pass.
func (s *Scheduler) Sweep() SweepStats {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var stats SweepStats
	s.sweepWorkspaces(now, maxAge, &stats)
	if s.outputMaxDays > 0 {
		s.sweepOutputs(now, time.Duration(s.outputMaxDays)*24*time.Hour, &stats)
	}
	if s.Pruner != nil {
		stats.PrunedJobs = s.Pruner.PruneJobs(maxAge)
	}

	if stats.Workspaces > 0 || stats.Outputs > 0 {
		log.Printf("Cleanup complete: %d workspaces and %d output files deleted, %.2fMB freed",
			stats.Workspaces, stats.Outputs, float64(stats.FreedBytes)/(1024*1024))
	}
	return stats
}

// sweepWorkspaces removes job directories left behind by crashed runs.
func (s *Scheduler) sweepWorkspaces(now time.Time, maxAge time.Duration, stats *SweepStats) {
	entries, err := os.ReadDir(s.workspaceRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error during workspace cleanup: %v", err)
		}
		return
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if s.Active != nil && s.Active(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		dir := filepath.Join(s.workspaceRoot, e.Name())
		size := dirSize(dir)
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Failed to delete stale workspace %s: %v", dir, err)
			continue
		}
		stats.Workspaces++
		stats.FreedBytes += size
		log.Printf("Deleted stale workspace: %s (age: %s)", e.Name(), age.Round(time.Minute))
	}
}

// sweepOutputs removes delivered videos and sidecars past their retention.
func (s *Scheduler) sweepOutputs(now time.Time, maxAge time.Duration, stats *SweepStats) {
	err := filepath.Walk(s.outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old output %s: %v", path, err)
				return nil
			}
			stats.Outputs++
			stats.FreedBytes += info.Size()
		}
		return nil
	})
	if err != nil {
		log.Printf("Error during output cleanup: %v", err)
	}
}

func dirSize(dir string) int64 {
	var size int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// EnsureDirExists creates the directory if it doesn't exist
func EnsureDirExists(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	log.Printf("Directory ready: %s", dir)
	return nil
}
