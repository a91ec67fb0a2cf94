package resources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultTTSURL = "https://translate.google.com/translate_tts"
	maxChunkRunes = 100
)

// Synthesizer turns text into a narration audio file at out.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string, slow bool, out string) error
}

// TranslateSynthesizer uses the public translate TTS endpoint. Long text is
// requested in chunks and the MP3 payloads are concatenated.
type TranslateSynthesizer struct {
	Fetcher *Fetcher
	BaseURL string
	Timeout time.Duration
}

func NewTranslateSynthesizer(f *Fetcher, baseURL string, timeout time.Duration) *TranslateSynthesizer {
	if baseURL == "" {
		baseURL = DefaultTTSURL
	}
	return &TranslateSynthesizer{Fetcher: f, BaseURL: baseURL, Timeout: timeout}
}

func (s *TranslateSynthesizer) Synthesize(ctx context.Context, text, lang string, slow bool, out string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	chunks := chunkText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return fmt.Errorf("nothing to synthesize")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := s.Fetcher.Fetch(ctx, s.chunkURL(chunk, lang, slow, i, len(chunks)), 0)
		if err != nil {
			return fmt.Errorf("tts chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(data)
	}

	if err := os.WriteFile(out, audio.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

func (s *TranslateSynthesizer) chunkURL(chunk, lang string, slow bool, idx, total int) string {
	speed := "1"
	if slow {
		speed = "0.3"
	}
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", lang)
	q.Set("client", "tw-ob")
	q.Set("ttsspeed", speed)
	q.Set("idx", fmt.Sprint(idx))
	q.Set("total", fmt.Sprint(total))
	q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(chunk)))
	return s.BaseURL + "?" + q.Encode()
}

// chunkText packs whitespace-separated words into chunks of at most limit
// runes. Words longer than limit are split.
func chunkText(text string, limit int) []string {
	var chunks []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		if len(cur) > 0 && len(cur)+1+len(w) > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()

	return chunks
}
