package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/script-to-video/internal/queue"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

const statusPollInterval = 500 * time.Millisecond

// StreamHandler handles WebSocket render sessions
type StreamHandler struct {
	workerPool   JobQueue
	defaults     queue.Defaults
	pollInterval time.Duration
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(workerPool JobQueue, defaults queue.Defaults) *StreamHandler {
	return &StreamHandler{
		workerPool:   workerPool,
		defaults:     defaults,
		pollInterval: statusPollInterval,
	}
}

// streamFrame is sent to the client for every status change.
type streamFrame struct {
	JobID     string              `json:"job_id,omitempty"`
	Status    string              `json:"status"`
	ErrorKind string              `json:"error_kind,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
	Result    *types.RenderResult `json:"result,omitempty"`
}

// Handle processes WebSocket connections. The first text frame carries the
// script, either raw or as a JSON object shaped like RenderRequest.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	messageType, message, err := c.ReadMessage()
	if err != nil {
		log.Printf("WebSocket read error: %v", err)
		return
	}
	if messageType != websocket.TextMessage {
		c.WriteJSON(streamFrame{Status: "rejected", Code: "ERR_INVALID_BODY", Message: "Script must be sent as a text frame"})
		return
	}

	job, err := submit(h.workerPool, h.defaults, types.SourceStream, parseStreamRequest(message))
	if err != nil {
		c.WriteJSON(rejectedFrame(err))
		return
	}

	log.Printf("WebSocket render session started: %s", job.ID)
	h.follow(c, job)
}

// watchedJob is the part of *queue.Job a session follows.
type watchedJob interface {
	Status() string
	Done() <-chan struct{}
	Snapshot() queue.Snapshot
}

// follow reports status changes until the job finishes or the client goes
// away.
func (h *StreamHandler) follow(c *websocket.Conn, job *queue.Job) {
	err := followJob(job, h.pollInterval, func(f streamFrame) error {
		return c.WriteJSON(f)
	})
	if err != nil {
		log.Printf("WebSocket write error for %s: %v", job.ID, err)
	}
}

// followJob sends one frame per non-terminal status change and exactly one
// terminal frame, carrying the outcome, once the job is done.
func followJob(job watchedJob, interval time.Duration, send func(streamFrame) error) error {
	last := ""
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status := job.Status()
		if status != last && status != types.StatusCompleted && status != types.StatusFailed {
			last = status
			if err := send(streamFrame{JobID: job.Snapshot().ID, Status: status}); err != nil {
				return err
			}
		}

		select {
		case <-job.Done():
			snap := job.Snapshot()
			return send(streamFrame{
				JobID:     snap.ID,
				Status:    snap.Status,
				ErrorKind: snap.ErrorKind,
				Message:   snap.Message,
				Result:    snap.Result,
			})
		case <-ticker.C:
		}
	}
}

// parseStreamRequest accepts either a JSON envelope or the bare script.
func parseStreamRequest(message []byte) RenderRequest {
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") {
		var req RenderRequest
		if err := json.Unmarshal([]byte(trimmed), &req); err == nil && req.Script != "" {
			return req
		}
	}
	return RenderRequest{Script: string(message)}
}

func rejectedFrame(err error) streamFrame {
	_, code, msg := rejection(err)
	return streamFrame{Status: "rejected", Code: code, Message: msg}
}
