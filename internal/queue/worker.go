package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/storage"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

var (
	ErrQueueFull   = errors.New("render queue is full")
	ErrDuplicateID = errors.New("job id already exists")
	ErrStopped     = errors.New("worker pool stopped")
)

const uploadAttempts = 3

// Renderer runs one render job.
type Renderer interface {
	Run(ctx context.Context, job render.Job, deliver render.DeliverFunc) (*types.RenderResult, error)
}

// Uploader publishes a saved video and returns a shareable link.
type Uploader interface {
	UploadVideo(ctx context.Context, res *types.RenderResult) (string, error)
}

// WorkerPool manages a pool of workers processing render jobs
type WorkerPool struct {
	jobQueue     chan *Job
	workerCount  int
	renderer     Renderer
	localStorage *storage.LocalStorage
	uploader     Uploader
	db           *storage.MetadataDB

	// RetryDelay is the pause before upload attempt n+1.
	RetryDelay func(attempt int) time.Duration

	mu      sync.RWMutex
	jobs    map[string]*Job
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. localStorage, uploader and db are
// optional.
func NewWorkerPool(
	workerCount, queueSize int,
	renderer Renderer,
	localStorage *storage.LocalStorage,
	uploader Uploader,
	db *storage.MetadataDB,
) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobQueue:     make(chan *Job, queueSize),
		workerCount:  workerCount,
		renderer:     renderer,
		localStorage: localStorage,
		uploader:     uploader,
		db:           db,
		RetryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops accepting jobs, cancels in-flight renders and waits for the
// workers to exit. Queued jobs that never started are failed.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.cancel()
	wp.wg.Wait()
	log.Println("Worker pool stopped")
}

// EnqueueJob adds a job to the queue without blocking.
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrStopped
	}
	if _, exists := wp.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
	}

	select {
	case wp.jobQueue <- job:
	default:
		return ErrQueueFull
	}
	wp.jobs[job.ID] = job

	if wp.db != nil {
		if err := wp.db.CreateRender(job.ID, job.SourceType, job.Request.Mode, job.Request.Language, job.Request.Script); err != nil {
			log.Printf("Database insert failed for job %s: %v", job.ID, err)
		}
	}

	log.Printf("Job %s enqueued (source: %s, mode: %s)", job.ID, job.SourceType, job.Request.Mode)
	return nil
}

// Job looks up a job by ID.
func (wp *WorkerPool) Job(id string) (*Job, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	return job, ok
}

// PruneJobs forgets finished jobs older than maxAge and returns how many were
// removed. Their records stay in the database.
func (wp *WorkerPool) PruneJobs(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	wp.mu.Lock()
	defer wp.mu.Unlock()

	removed := 0
	for id, job := range wp.jobs {
		if job.finished() && job.CreatedAt.Before(cutoff) {
			delete(wp.jobs, id)
			removed++
		}
	}
	return removed
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					wp.complete(id, job, nil, fmt.Errorf("worker panic: %v", r))
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob runs the render pipeline and records the outcome
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	if err := wp.ctx.Err(); err != nil {
		wp.complete(workerID, job, nil, fmt.Errorf("job cancelled before start: %w", err))
		return
	}

	log.Printf("Worker %d: Processing job %s", workerID, job.ID)
	job.setStatus(types.StatusProcessing)
	if wp.db != nil {
		if err := wp.db.StartRender(job.ID); err != nil {
			log.Printf("Worker %d: Database update failed: %v", workerID, err)
		}
	}

	start := time.Now()
	res, err := wp.renderer.Run(wp.ctx, job.Request, func(ctx context.Context, res *types.RenderResult) error {
		return wp.deliver(ctx, workerID, res)
	})
	if err != nil {
		log.Printf("Worker %d: Render failed for job %s: %v", workerID, job.ID, err)
		wp.complete(workerID, job, nil, err)
		return
	}

	log.Printf("Worker %d: Job %s completed in %s (local: %s, gdrive: %s)",
		workerID, job.ID, time.Since(start).Round(time.Millisecond), res.LocalPath, res.GDriveURL)
	wp.complete(workerID, job, res, nil)
}

// deliver copies the artifact out of the workspace before it is released
// and optionally uploads it.
func (wp *WorkerPool) deliver(ctx context.Context, workerID int, res *types.RenderResult) error {
	if wp.localStorage != nil {
		localPath, err := wp.localStorage.SaveVideo(res)
		if err != nil {
			return fmt.Errorf("local save failed: %w", err)
		}
		res.LocalPath = localPath
	}

	if wp.uploader == nil || res.LocalPath == "" {
		return nil
	}

	var err error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		var url string
		url, err = wp.uploader.UploadVideo(ctx, res)
		if err == nil {
			res.GDriveURL = url
			return nil
		}
		log.Printf("Worker %d: Google Drive upload attempt %d/%d failed: %v", workerID, attempt, uploadAttempts, err)
		if attempt < uploadAttempts {
			select {
			case <-time.After(wp.RetryDelay(attempt)):
			case <-ctx.Done():
				return nil
			}
		}
	}
	log.Printf("Worker %d: WARNING - Google Drive upload failed after %d attempts, continuing with local save only", workerID, uploadAttempts)
	return nil
}

func (wp *WorkerPool) complete(workerID int, job *Job, res *types.RenderResult, err error) {
	if !job.finish(res, err) {
		return
	}
	defer job.markDone()

	if wp.db != nil {
		var dbErr error
		if err != nil {
			dbErr = wp.db.FailRender(job.ID, errorKind(err), err.Error())
		} else {
			dbErr = wp.db.CompleteRender(job.ID, res)
		}
		if dbErr != nil {
			log.Printf("Worker %d: Database save failed: %v", workerID, dbErr)
		}
	}

	if job.OnDone != nil {
		job.OnDone(job)
	}
}
