package handlers

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/script-to-video/internal/queue"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

const (
	driveDownloadURL = "https://drive.google.com/uc?export=download&id=%s"
	docsExportURL    = "https://docs.google.com/document/d/%s/export?format=txt"
	driveTimeout     = 30 * time.Second
)

var (
	driveFilePattern = regexp.MustCompile(`/(?:file|document)/d/([a-zA-Z0-9_-]+)`)
	driveIDParam     = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareID      = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,60})$`)
)

// ScriptFetcher downloads a shared script. resources.Fetcher satisfies it.
type ScriptFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// GDriveHandler renders scripts shared as Google Drive text files or Docs
type GDriveHandler struct {
	workerPool JobQueue
	defaults   queue.Defaults
	fetcher    ScriptFetcher

	// DownloadURL and ExportURL are fmt templates taking the file ID.
	DownloadURL string
	ExportURL   string
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(workerPool JobQueue, defaults queue.Defaults, fetcher ScriptFetcher) *GDriveHandler {
	return &GDriveHandler{
		workerPool:  workerPool,
		defaults:    defaults,
		fetcher:     fetcher,
		DownloadURL: driveDownloadURL,
		ExportURL:   docsExportURL,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL      string `json:"url"`
	Mode     string `json:"mode"`
	Language string `json:"language"`
	Slow     *bool  `json:"slow"`
}

// Handle processes Google Drive link requests
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if req.URL == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "URL is required",
			"code":  "ERR_NO_URL",
		})
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid Google Drive URL",
			"code":  "ERR_INVALID_URL",
		})
	}

	downloadURL := fmt.Sprintf(h.DownloadURL, fileID)
	if strings.Contains(req.URL, "/document/d/") {
		downloadURL = fmt.Sprintf(h.ExportURL, fileID)
	}

	log.Printf("Downloading script from Google Drive: %s", fileID)

	data, err := h.fetcher.Fetch(c.UserContext(), downloadURL, driveTimeout)
	if err != nil {
		log.Printf("Failed to download from Google Drive: %v", err)
		return c.Status(400).JSON(fiber.Map{
			"error": "File not accessible (may be private or doesn't exist)",
			"code":  "ERR_FILE_NOT_ACCESSIBLE",
		})
	}
	if !utf8.Valid(data) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Script must be UTF-8 text",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	job, err := submit(h.workerPool, h.defaults, types.SourceGDrive, RenderRequest{
		Script:   strings.TrimPrefix(string(data), "\ufeff"),
		Mode:     req.Mode,
		Language: req.Language,
		Slow:     req.Slow,
	})
	if err != nil {
		return rejectJSON(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status(),
		"mode":    job.Request.Mode,
		"message": "Google Drive script downloaded, rendering started",
	})
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view, https://docs.google.com/document/d/{ID}/edit
	if matches := driveFilePattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	// https://drive.google.com/open?id={ID}
	if matches := driveIDParam.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	if matches := driveBareID.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	return ""
}
