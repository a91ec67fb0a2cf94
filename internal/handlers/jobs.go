package handlers

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/script-to-video/internal/storage"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RenderStore is the read side of storage.MetadataDB.
type RenderStore interface {
	GetRender(jobID string) (*storage.RenderRecord, error)
	ListRenders(limit int) ([]storage.RenderRecord, error)
}

// JobsHandler serves job status, finished videos and render history
type JobsHandler struct {
	workerPool JobQueue
	db         RenderStore
}

// NewJobsHandler creates a new jobs handler. db may be nil.
func NewJobsHandler(workerPool JobQueue, db RenderStore) *JobsHandler {
	return &JobsHandler{
		workerPool: workerPool,
		db:         db,
	}
}

// Get returns the state of one job. Jobs no longer held in memory are
// answered from the database.
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	if job, ok := h.workerPool.Job(id); ok {
		return c.JSON(job.Snapshot())
	}

	rec, err := h.record(id)
	if err != nil {
		return notFound(c, err)
	}
	return c.JSON(rec)
}

// Video streams the delivered MP4 of a completed job.
func (h *JobsHandler) Video(c *fiber.Ctx) error {
	id := c.Params("id")

	var localPath string
	if job, ok := h.workerPool.Job(id); ok {
		if job.Status() != types.StatusCompleted {
			return c.Status(409).JSON(fiber.Map{
				"error":  "Video not ready",
				"code":   "ERR_NOT_READY",
				"status": job.Status(),
			})
		}
		if res := job.Result(); res != nil {
			localPath = res.LocalPath
		}
	} else {
		rec, err := h.record(id)
		if err != nil {
			return notFound(c, err)
		}
		localPath = rec.LocalPath
	}

	if localPath == "" {
		return c.Status(404).JSON(fiber.Map{
			"error": "Video file path not found",
			"code":  "ERR_NO_VIDEO",
		})
	}
	if _, err := os.Stat(localPath); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Video file no longer available",
			"code":  "ERR_NO_VIDEO",
		})
	}

	c.Type("mp4")
	return c.SendFile(localPath)
}

// List returns the most recent renders.
func (h *JobsHandler) List(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON([]storage.RenderRecord{})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}

	renders, err := h.db.ListRenders(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if renders == nil {
		renders = []storage.RenderRecord{}
	}
	return c.JSON(renders)
}

func (h *JobsHandler) record(id string) (*storage.RenderRecord, error) {
	if h.db == nil {
		return nil, storage.ErrNotFound
	}
	return h.db.GetRender(id)
}

func notFound(c *fiber.Ctx, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
