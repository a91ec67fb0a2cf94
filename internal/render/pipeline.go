// Package render runs one script-to-video job from segmentation to the final
// artifact.
package render

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/script-to-video/internal/assemble"
	"github.com/codebuildervaibhav/script-to-video/internal/ffmpeg"
	"github.com/codebuildervaibhav/script-to-video/internal/frames"
	"github.com/codebuildervaibhav/script-to-video/internal/resources"
	"github.com/codebuildervaibhav/script-to-video/internal/segment"
	"github.com/codebuildervaibhav/script-to-video/internal/timing"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
	"github.com/codebuildervaibhav/script-to-video/internal/workspace"
)

// Job is a single render request.
type Job struct {
	ID       string
	Script   string
	Mode     types.Mode
	Language string
	Slow     bool
}

// DeliverFunc receives the finished result while the artifact still exists
// in the job workspace. It must copy the video out if it needs to keep it.
type DeliverFunc func(ctx context.Context, res *types.RenderResult) error

// Pipeline wires the render stages together. Backgrounds and Music may be nil.
type Pipeline struct {
	Workspaces  *workspace.Manager
	Synth       resources.Synthesizer
	Backgrounds resources.BackgroundResolver
	Music       resources.MusicResolver
	Fonts       *frames.FontSource
	Runner      ffmpeg.Runner
	FFprobe     string
	Assembler   *assemble.Assembler
}

// Run renders job and hands the result to deliver. The workspace is released
// on every path. Encoder failures are returned as *ffmpeg.EncoderError.
func (p *Pipeline) Run(ctx context.Context, job Job, deliver DeliverFunc) (*types.RenderResult, error) {
	if job.Language == "" {
		job.Language = "hi"
	}
	if job.Mode == "" {
		job.Mode = types.ModeTypewriter
	}

	ws, err := p.Workspaces.Acquire(job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire workspace: %w", err)
	}
	defer func() {
		if err := p.Workspaces.Release(job.ID); err != nil {
			log.Printf("[%s] WARNING: workspace cleanup failed: %v", job.ID, err)
		}
	}()

	units := segment.Segment(job.Script, job.Mode)
	log.Printf("[%s] %d %s units", job.ID, len(units), job.Mode)

	res, err := p.resolve(ctx, ws, job)
	if err != nil {
		return nil, err
	}

	duration, err := ffmpeg.ProbeDuration(ctx, p.Runner, p.ffprobe(), ws.Path(workspace.AudioFile))
	measured := err == nil
	if !measured {
		log.Printf("[%s] WARNING: could not measure narration, using fallback timing: %v", job.ID, err)
	}

	plan := timing.New(job.Mode, duration, measured, len(units))
	log.Printf("[%s] Narration %.2fs (measured=%v), %d manifest entries", job.ID, plan.AudioDuration, measured, len(plan.Entries))

	items, rendered, err := p.renderFrames(ctx, ws, job.Mode, units, plan, res.background)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] Rendered %d distinct frames", job.ID, rendered)

	final, err := p.Assembler.Assemble(ctx, assemble.Input{
		Workspace: ws,
		Items:     items,
		Narration: plan.AudioDuration,
		MusicPath: res.musicPath,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] Video ready", job.ID)

	result := &types.RenderResult{
		JobID:         job.ID,
		Mode:          job.Mode,
		Language:      job.Language,
		VideoPath:     final,
		AudioDuration: plan.AudioDuration,
		DurationKnown: measured,
		Units:         len(units),
		Frames:        len(items),
		HasBackground: res.background != nil,
		HasMusic:      res.musicPath != "",
		RenderedAt:    time.Now(),
	}

	if deliver != nil {
		if err := deliver(ctx, result); err != nil {
			return nil, fmt.Errorf("delivery failed: %w", err)
		}
	}

	return result, nil
}

type resolved struct {
	background image.Image
	musicPath  string
}

// resolve synthesizes narration and fetches the optional resources
// concurrently. Only a synthesis failure aborts the job.
func (p *Pipeline) resolve(ctx context.Context, ws *workspace.Workspace, job Job) (*resolved, error) {
	var (
		mu  sync.Mutex
		out resolved
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := p.Synth.Synthesize(gctx, job.Script, job.Language, job.Slow, ws.Path(workspace.AudioFile)); err != nil {
			return fmt.Errorf("speech synthesis failed: %w", err)
		}
		log.Printf("[%s] Audio synthesized", job.ID)
		return nil
	})

	if job.Mode == types.ModeTypewriter && p.Backgrounds != nil {
		g.Go(func() error {
			keyword := resources.KeywordFor(job.Script)
			data, ok := p.Backgrounds.Resolve(gctx, keyword)
			if !ok {
				return nil
			}
			if err := os.WriteFile(ws.Path(workspace.BackgroundFile), data, 0644); err != nil {
				log.Printf("[%s] WARNING: could not store background: %v", job.ID, err)
				return nil
			}
			img, err := frames.PrepareBackground(data)
			if err != nil {
				log.Printf("[%s] WARNING: unusable background for %q: %v", job.ID, keyword, err)
				return nil
			}
			mu.Lock()
			out.background = img
			mu.Unlock()
			log.Printf("[%s] Background ready (%s)", job.ID, keyword)
			return nil
		})
	}

	if p.Music != nil {
		g.Go(func() error {
			data, ok := p.Music.Resolve(gctx)
			if !ok {
				return nil
			}
			path := ws.Path(workspace.MusicFile)
			if err := os.WriteFile(path, data, 0644); err != nil {
				log.Printf("[%s] WARNING: could not store music: %v", job.ID, err)
				return nil
			}
			mu.Lock()
			out.musicPath = path
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// renderFrames draws each distinct unit once and lays out the manifest. In
// typewriter mode consecutive entries showing the same prefix share one image.
func (p *Pipeline) renderFrames(ctx context.Context, ws *workspace.Workspace, mode types.Mode, units []segment.Unit, plan timing.Plan, bg image.Image) ([]assemble.Item, int, error) {
	r := frames.NewRenderer(p.Fonts, bg)
	defer r.Close()

	totalWords := units[len(units)-1].Words
	paths := make(map[int]string, len(units))
	items := make([]assemble.Item, 0, len(plan.Entries))

	for _, e := range plan.Entries {
		path, ok := paths[e.Unit]
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}

			u := units[e.Unit]
			var img *image.RGBA
			if mode == types.ModeTypewriter {
				img = r.RenderTypewriter(u.Text, u.Words, totalWords)
			} else {
				img = r.RenderSlide(u.Text, u.Index, len(units))
			}

			path = ws.FramePath(len(paths))
			if err := frames.WritePNG(img, path); err != nil {
				return nil, 0, err
			}
			paths[e.Unit] = path
		}
		items = append(items, assemble.Item{Path: path, Duration: e.Duration})
	}

	return items, len(paths), nil
}

func (p *Pipeline) ffprobe() string {
	if p.FFprobe == "" {
		return "ffprobe"
	}
	return p.FFprobe
}
