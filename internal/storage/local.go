package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

// LocalStorage handles saving videos to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// OutputDir returns the root of the dated output tree.
func (ls *LocalStorage) OutputDir() string {
	return ls.outputDir
}

// SaveVideo copies the rendered video out of the job workspace and writes a
// metadata sidecar next to it. It returns the path of the copy.
func (ls *LocalStorage) SaveVideo(res *types.RenderResult) (string, error) {
	// Create dated directory structure: outputs/2025/01/23/
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_job_42.mp4
	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(res.JobID))
	videoPath := filepath.Join(dateDir, baseFilename+".mp4")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := copyFile(res.VideoPath, videoPath); err != nil {
		return "", fmt.Errorf("failed to save video: %w", err)
	}

	metaJSON, err := json.MarshalIndent(metadataFor(res, videoPath), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return videoPath, nil
}

func metadataFor(res *types.RenderResult, localPath string) map[string]interface{} {
	return map[string]interface{}{
		"job_id":           res.JobID,
		"mode":             res.Mode,
		"language":         res.Language,
		"duration_seconds": res.AudioDuration,
		"duration_known":   res.DurationKnown,
		"units":            res.Units,
		"frames":           res.Frames,
		"has_background":   res.HasBackground,
		"has_music":        res.HasMusic,
		"created_at":       res.RenderedAt,
		"local_path":       localPath,
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// sanitizeFilename replaces characters that are unsafe in file names
func sanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if result == "" {
		result = "video"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
