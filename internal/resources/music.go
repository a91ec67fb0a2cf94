package resources

import (
	"context"
	"log"
	"math/rand/v2"
	"time"
)

// DefaultMusicURLs is the built-in clip list used when none is configured.
var DefaultMusicURLs = []string{
	"https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3",
	"https://www.soundhelix.com/examples/mp3/SoundHelix-Song-2.mp3",
	"https://www.soundhelix.com/examples/mp3/SoundHelix-Song-3.mp3",
}

// MusicResolver returns an optional background clip.
type MusicResolver interface {
	Resolve(ctx context.Context) (data []byte, ok bool)
}

// HTTPMusicResolver downloads one clip picked at random from URLs.
type HTTPMusicResolver struct {
	Fetcher *Fetcher
	URLs    []string
	Timeout time.Duration

	// Pick returns an index in [0, n). Defaults to math/rand.
	Pick func(n int) int
}

func NewHTTPMusicResolver(f *Fetcher, urls []string, timeout time.Duration) *HTTPMusicResolver {
	return &HTTPMusicResolver{Fetcher: f, URLs: urls, Timeout: timeout, Pick: rand.IntN}
}

func (r *HTTPMusicResolver) Resolve(ctx context.Context) ([]byte, bool) {
	if len(r.URLs) == 0 {
		log.Printf("WARNING: no music clips configured")
		return nil, false
	}
	pick := r.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return r.Fetcher.TryFetch(ctx, "music", r.URLs[pick(len(r.URLs))], r.Timeout)
}
