package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/script-to-video/internal/ffmpeg"
	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/storage"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

type fakePipeline struct {
	dir string
	err error
}

func (f fakePipeline) Run(ctx context.Context, job render.Job, deliver render.DeliverFunc) (*types.RenderResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	video := filepath.Join(f.dir, "final_video.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0644); err != nil {
		return nil, err
	}
	res := &types.RenderResult{JobID: job.ID, Mode: job.Mode, VideoPath: video, AudioDuration: 3, Frames: 2}
	if err := deliver(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func testJob() render.Job {
	return render.Job{ID: "cli_test", Script: "पहला वाक्य। दूसरा वाक्य।", Mode: types.ModeSlide, Language: "hi"}
}

func newDB(t *testing.T) *storage.MetadataDB {
	t.Helper()
	db, err := storage.NewMetadataDB(filepath.Join(t.TempDir(), "renders.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRenderJob_ExplicitOutput(t *testing.T) {
	db := newDB(t)
	out := filepath.Join(t.TempDir(), "nested", "video.mp4")

	res, err := renderJob(context.Background(), fakePipeline{dir: t.TempDir()}, db, nil, testJob(), out)
	if err != nil {
		t.Fatalf("renderJob failed: %v", err)
	}
	if res.LocalPath != out {
		t.Errorf("LocalPath = %s, want %s", res.LocalPath, out)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) != "mp4" {
		t.Errorf("output not copied: %q %v", data, err)
	}

	rec, err := db.GetRender("cli_test")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.StatusCompleted || rec.Source != types.SourceCLI || rec.LocalPath != out {
		t.Errorf("record = %+v", rec)
	}
}

func TestRenderJob_DatedOutput(t *testing.T) {
	outDir := t.TempDir()
	res, err := renderJob(context.Background(), fakePipeline{dir: t.TempDir()}, nil, storage.NewLocalStorage(outDir), testJob(), "")
	if err != nil {
		t.Fatalf("renderJob failed: %v", err)
	}
	if !strings.HasPrefix(res.LocalPath, outDir) || !strings.HasSuffix(res.LocalPath, "_cli_test.mp4") {
		t.Errorf("LocalPath = %s", res.LocalPath)
	}
}

func TestRenderJob_EncoderFailureRecorded(t *testing.T) {
	db := newDB(t)
	encErr := &ffmpeg.EncoderError{Stage: "mux", Err: errors.New("exit status 1")}

	_, err := renderJob(context.Background(), fakePipeline{err: encErr}, db, nil, testJob(), "unused.mp4")
	if render.OutcomeMessage(err) != render.MsgEncoderFailed {
		t.Errorf("outcome = %q", render.OutcomeMessage(err))
	}

	rec, err := db.GetRender("cli_test")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.StatusFailed || rec.ErrorKind != types.ErrorKindEncoder {
		t.Errorf("record = %+v", rec)
	}
}

func TestReadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte("\ufeff" + "from file"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := readScript(strings.NewReader("ignored"), []string{path})
	if err != nil || got != "from file" {
		t.Errorf("file: %q %v", got, err)
	}

	got, err = readScript(strings.NewReader("from stdin"), nil)
	if err != nil || got != "from stdin" {
		t.Errorf("stdin: %q %v", got, err)
	}

	got, err = readScript(strings.NewReader("dash"), []string{"-"})
	if err != nil || got != "dash" {
		t.Errorf("dash: %q %v", got, err)
	}

	if _, err := readScript(nil, []string{filepath.Join(t.TempDir(), "missing.txt")}); err == nil {
		t.Error("expected error for missing file")
	}
}
