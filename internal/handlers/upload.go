package handlers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/script-to-video/internal/queue"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

var scriptExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	"":     true,
}

// UploadHandler handles script file uploads
type UploadHandler struct {
	workerPool JobQueue
	defaults   queue.Defaults
	maxSizeKB  int
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(workerPool JobQueue, defaults queue.Defaults, maxSizeKB int) *UploadHandler {
	if maxSizeKB <= 0 {
		maxSizeKB = 64
	}
	return &UploadHandler{
		workerPool: workerPool,
		defaults:   defaults,
		maxSizeKB:  maxSizeKB,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	if file.Size > int64(h.maxSizeKB)*1024 {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dKB)", h.maxSizeKB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if !scriptExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unsupported script format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read file",
			"code":  "ERR_READ_FAILED",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || !utf8.Valid(data) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Script must be UTF-8 text",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	job, err := submit(h.workerPool, h.defaults, types.SourceUpload, RenderRequest{
		Script:   string(data),
		Mode:     c.FormValue("mode"),
		Language: c.FormValue("language"),
		Slow:     parseBool(c.FormValue("slow")),
	})
	if err != nil {
		return rejectJSON(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status(),
		"mode":    job.Request.Mode,
		"message": "Script uploaded successfully, rendering started",
	})
}

func parseBool(s string) *bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		v := true
		return &v
	case "0", "false", "no", "off":
		v := false
		return &v
	}
	return nil
}
