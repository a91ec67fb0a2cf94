package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/script-to-video/internal/queue"
	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

// JobQueue is the part of the worker pool the transports need.
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	Job(id string) (*queue.Job, bool)
}

// RenderHandler accepts scripts as JSON
type RenderHandler struct {
	workerPool JobQueue
	defaults   queue.Defaults
}

// NewRenderHandler creates a new render handler
func NewRenderHandler(workerPool JobQueue, defaults queue.Defaults) *RenderHandler {
	return &RenderHandler{
		workerPool: workerPool,
		defaults:   defaults,
	}
}

// RenderRequest represents the request body
type RenderRequest struct {
	Script   string `json:"script"`
	Mode     string `json:"mode"`
	Language string `json:"language"`
	Slow     *bool  `json:"slow"`
}

// Handle processes render requests
func (h *RenderHandler) Handle(c *fiber.Ctx) error {
	var req RenderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	job, err := submit(h.workerPool, h.defaults, types.SourceHTTP, req)
	if err != nil {
		return rejectJSON(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status(),
		"mode":    job.Request.Mode,
		"message": "Script accepted, rendering started",
	})
}

func newJobID() string {
	return "job_" + uuid.New().String()
}

// submit validates req and enqueues it as a new job.
func submit(q JobQueue, defaults queue.Defaults, source string, req RenderRequest) (*queue.Job, error) {
	rj, err := defaults.Build(newJobID(), req.Script, req.Mode, req.Language, req.Slow)
	if err != nil {
		return nil, err
	}

	job := queue.NewJob(source, rj)
	if err := q.EnqueueJob(job); err != nil {
		log.Printf("Failed to enqueue job %s: %v", job.ID, err)
		return nil, err
	}
	return job, nil
}

// rejection maps submission errors to an HTTP status, error code and
// user-facing message.
func rejection(err error) (int, string, string) {
	switch {
	case errors.Is(err, render.ErrScriptTooShort):
		return 400, "ERR_SCRIPT_TOO_SHORT", render.MsgTooShort
	case errors.Is(err, render.ErrScriptTooLong):
		return 400, "ERR_SCRIPT_TOO_LONG", render.MsgTooLong
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		return 503, "ERR_QUEUE_FULL", "Render queue is busy, try again later"
	default:
		return 500, "ERR_ENQUEUE_FAILED", "Failed to queue render"
	}
}

func rejectJSON(c *fiber.Ctx, err error) error {
	status, code, msg := rejection(err)
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}
