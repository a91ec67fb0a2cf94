package assemble

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Item is one image shown for Duration seconds.
type Item struct {
	Path     string
	Duration float64
}

// WriteManifest writes a concat demuxer list for items. The final image is
// listed once more without a duration so the demuxer holds it for its full
// slot.
func WriteManifest(path string, items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("manifest needs at least one image")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, it := range items {
		abs, err := filepath.Abs(it.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", it.Path, err)
		}
		fmt.Fprintf(w, "file '%s'\n", quote(abs))
		fmt.Fprintf(w, "duration %.6f\n", it.Duration)
	}
	last, err := filepath.Abs(items[len(items)-1].Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", items[len(items)-1].Path, err)
	}
	fmt.Fprintf(w, "file '%s'\n", quote(last))

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return f.Close()
}

// quote escapes single quotes for the concat demuxer's quoting rules.
func quote(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
