package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

func newTestDB(t *testing.T) *MetadataDB {
	t.Helper()
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "renders.db"))
	if err != nil {
		t.Fatalf("NewMetadataDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMetadataDB_Lifecycle(t *testing.T) {
	db := newTestDB(t)

	if err := db.CreateRender("job_1", types.SourceHTTP, types.ModeSlide, "hi", "आज का मौसम ठीक।"); err != nil {
		t.Fatalf("CreateRender failed: %v", err)
	}
	r, err := db.GetRender("job_1")
	if err != nil {
		t.Fatalf("GetRender failed: %v", err)
	}
	if r.Status != types.StatusQueued || r.StartedAt != nil {
		t.Errorf("unexpected new record: %+v", r)
	}

	if err := db.StartRender("job_1"); err != nil {
		t.Fatal(err)
	}
	res := &types.RenderResult{LocalPath: "/out/v.mp4", GDriveURL: "https://drive/x", AudioDuration: 3, Units: 1, Frames: 1}
	if err := db.CompleteRender("job_1", res); err != nil {
		t.Fatal(err)
	}

	r, err = db.GetRender("job_1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != types.StatusCompleted || r.LocalPath != "/out/v.mp4" || r.Frames != 1 {
		t.Errorf("unexpected completed record: %+v", r)
	}
	if r.StartedAt == nil || r.FinishedAt == nil {
		t.Error("expected start and finish timestamps")
	}
}

func TestMetadataDB_Fail(t *testing.T) {
	db := newTestDB(t)
	if err := db.CreateRender("job_2", types.SourceRedis, types.ModeTypewriter, "hi", "script"); err != nil {
		t.Fatal(err)
	}
	if err := db.FailRender("job_2", types.ErrorKindEncoder, "ffmpeg mux failed"); err != nil {
		t.Fatal(err)
	}
	r, err := db.GetRender("job_2")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != types.StatusFailed || r.ErrorKind != types.ErrorKindEncoder {
		t.Errorf("unexpected failed record: %+v", r)
	}
}

func TestMetadataDB_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetRender("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRender err = %v, want ErrNotFound", err)
	}
	if err := db.StartRender("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("StartRender err = %v, want ErrNotFound", err)
	}
}

func TestMetadataDB_List(t *testing.T) {
	db := newTestDB(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := db.CreateRender(id, types.SourceCLI, types.ModeSlide, "en", strings.Repeat("x", 200)); err != nil {
			t.Fatal(err)
		}
	}

	renders, err := db.ListRenders(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(renders) != 2 || renders[0].JobID != "c" {
		t.Errorf("unexpected list: %+v", renders)
	}
	if got := len([]rune(renders[0].ScriptPreview)); got != 81 {
		t.Errorf("preview length = %d, want 81", got)
	}
}

func TestLocalStorage_SaveVideo(t *testing.T) {
	src := filepath.Join(t.TempDir(), "final_video.mp4")
	if err := os.WriteFile(src, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	ls := NewLocalStorage(t.TempDir())
	path, err := ls.SaveVideo(&types.RenderResult{JobID: "job/9", VideoPath: src, Mode: types.ModeSlide, RenderedAt: time.Now()})
	if err != nil {
		t.Fatalf("SaveVideo failed: %v", err)
	}

	if !strings.HasPrefix(path, ls.OutputDir()) || !strings.HasSuffix(path, "_job_9.mp4") {
		t.Errorf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "video-bytes" {
		t.Errorf("copy mismatch: %q %v", data, err)
	}

	metaBytes, err := os.ReadFile(strings.TrimSuffix(path, ".mp4") + "_meta.json")
	if err != nil {
		t.Fatal(err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["job_id"] != "job/9" || meta["local_path"] != path {
		t.Errorf("unexpected metadata: %v", meta)
	}
}

func TestLocalStorage_MissingSource(t *testing.T) {
	ls := NewLocalStorage(t.TempDir())
	if _, err := ls.SaveVideo(&types.RenderResult{JobID: "x", VideoPath: "/nope.mp4"}); err == nil {
		t.Error("expected error for missing video")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"job_1":      "job_1",
		"a/b\\c:d":   "a_b_c_d",
		`what?"<>|*`: "what______",
		"":           "video",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

// fakeDrive answers every list with no matches and every create with a new id.
type fakeDrive struct {
	mu      sync.Mutex
	created []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet {
		w.Write([]byte(`{"files":[]}`))
		return
	}
	f.mu.Lock()
	f.created = append(f.created, r.URL.Path)
	id := len(f.created)
	f.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":          "file" + string(rune('0'+id)),
		"webViewLink": "https://drive.example/file" + string(rune('0'+id)),
	})
}

func TestDriveClient_UploadVideo(t *testing.T) {
	fake := &fakeDrive{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	svc, err := drive.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	dc, err := newDriveClient(ctx, svc, "Script Videos")
	if err != nil {
		t.Fatalf("newDriveClient failed: %v", err)
	}

	video := filepath.Join(t.TempDir(), "v.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0644); err != nil {
		t.Fatal(err)
	}

	link, err := dc.UploadVideo(ctx, &types.RenderResult{JobID: "job_1", LocalPath: video})
	if err != nil {
		t.Fatalf("UploadVideo failed: %v", err)
	}
	// root, year, month, day, video, metadata
	if len(fake.created) != 6 {
		t.Errorf("expected 6 creates, got %d", len(fake.created))
	}
	if link != "https://drive.example/file5" {
		t.Errorf("link = %q", link)
	}
}
