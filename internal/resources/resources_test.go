package resources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

func TestKeywordFor(t *testing.T) {
	tests := []struct {
		script string
		want   string
	}{
		{"आज बारिश हो रही है।", "rain"},
		{"The mountain air was cold. The sea was calm.", "ocean"},
		{"Meet me in the City tonight", "city"},
		{"Season tickets are sold out", FallbackKeyword},
		{"कुछ भी नहीं", FallbackKeyword},
		{"", FallbackKeyword},
	}
	for _, tt := range tests {
		if got := KeywordFor(tt.script); got != tt.want {
			t.Errorf("KeywordFor(%q) = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestChunkText(t *testing.T) {
	text := strings.Repeat("शब्द ", 60)
	chunks := chunkText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 100 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
	if strings.Join(chunks, " ") != strings.TrimSpace(text) {
		t.Error("chunks do not reassemble to the input")
	}

	long := strings.Repeat("x", 250)
	got := chunkText(long, 100)
	if len(got) != 3 || got[2] != strings.Repeat("x", 50) {
		t.Errorf("long word chunks = %d", len(got))
	}
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(0, 1)
	ctx := context.Background()

	data, err := f.Fetch(ctx, srv.URL+"/ok", time.Second)
	if err != nil || string(data) != "payload" {
		t.Fatalf("Fetch /ok = %q, %v", data, err)
	}
	if _, err := f.Fetch(ctx, srv.URL+"/missing", time.Second); err == nil {
		t.Error("expected error for 404")
	}
	if _, ok := f.TryFetch(ctx, "test", srv.URL+"/slow", 20*time.Millisecond); ok {
		t.Error("expected timeout to report unavailable")
	}
}

func TestTranslateSynthesizer(t *testing.T) {
	var mu sync.Mutex
	var queries []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		if r.URL.Query().Get("tl") != "hi" || r.URL.Query().Get("client") != "tw-ob" {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		w.Write([]byte("[" + r.URL.Query().Get("idx") + "]"))
	}))
	defer srv.Close()

	s := NewTranslateSynthesizer(NewFetcher(0, 1), srv.URL, time.Second)
	out := filepath.Join(t.TempDir(), "audio.mp3")

	text := strings.Repeat("नमस्ते दुनिया ", 20)
	if err := s.Synthesize(context.Background(), text, "hi", true, out); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "[0][1]") {
		t.Errorf("chunks not concatenated in order: %q", data)
	}
	if len(queries) < 2 {
		t.Errorf("expected chunked requests, got %d", len(queries))
	}
	if !strings.Contains(queries[0], "ttsspeed=0.3") {
		t.Errorf("slow flag not forwarded: %s", queries[0])
	}
}

func TestTranslateSynthesizer_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewTranslateSynthesizer(NewFetcher(0, 1), srv.URL, time.Second)
	out := filepath.Join(t.TempDir(), "audio.mp3")
	if err := s.Synthesize(context.Background(), "hello there", "en", false, out); err == nil {
		t.Fatal("expected synthesis error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no audio file should be written on failure")
	}
}

func TestHTTPBackgroundResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/rain" {
			w.Write([]byte("jpeg"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPBackgroundResolver(NewFetcher(0, 1), srv.URL+"/img/{keyword}", time.Second)
	if data, ok := r.Resolve(context.Background(), "rain"); !ok || string(data) != "jpeg" {
		t.Errorf("Resolve(rain) = %q, %v", data, ok)
	}
	if _, ok := r.Resolve(context.Background(), "ocean"); ok {
		t.Error("expected non-200 to yield no image")
	}
}

func TestHTTPMusicResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	r := NewHTTPMusicResolver(NewFetcher(0, 1), []string{srv.URL + "/a.mp3", srv.URL + "/b.mp3"}, time.Second)
	r.Pick = func(n int) int { return n - 1 }

	data, ok := r.Resolve(context.Background())
	if !ok || string(data) != "/b.mp3" {
		t.Errorf("Resolve = %q, %v", data, ok)
	}

	empty := NewHTTPMusicResolver(NewFetcher(0, 1), nil, time.Second)
	if _, ok := empty.Resolve(context.Background()); ok {
		t.Error("expected no music with an empty clip list")
	}
}
