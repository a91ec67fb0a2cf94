// Package app assembles the render pipeline from configuration. It is shared
// by the server and the one-shot CLI.
package app

import (
	"log"
	"time"

	"github.com/codebuildervaibhav/script-to-video/internal/assemble"
	"github.com/codebuildervaibhav/script-to-video/internal/config"
	"github.com/codebuildervaibhav/script-to-video/internal/ffmpeg"
	"github.com/codebuildervaibhav/script-to-video/internal/frames"
	"github.com/codebuildervaibhav/script-to-video/internal/queue"
	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/resources"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
	"github.com/codebuildervaibhav/script-to-video/internal/workspace"
)

// Components are the long-lived pieces built from a Config.
type Components struct {
	Fetcher    *resources.Fetcher
	Workspaces *workspace.Manager
	Pipeline   *render.Pipeline
}

// Build wires the fetcher, resolvers, encoder and workspace manager into a
// render pipeline.
func Build(cfg *config.Config) *Components {
	fetcher := resources.NewFetcher(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst)
	manager := workspace.NewManager(cfg.Storage.WorkspaceDir)

	fonts := frames.NewFontSource(cfg.Render.FontPath, cfg.Render.FallbackFont)
	log.Printf("Frame font: %s", fonts.Name())

	if !ffmpeg.Available(cfg.FFmpeg.Path) {
		log.Printf("WARNING: %s not found on PATH, renders will fail at the encoding stage", cfg.FFmpeg.Path)
	}
	runner := ffmpeg.ExecRunner{Timeout: time.Duration(cfg.FFmpeg.TimeoutMinutes) * time.Minute}

	p := &render.Pipeline{
		Workspaces:  manager,
		Synth:       resources.NewTranslateSynthesizer(fetcher, cfg.TTS.URL, seconds(cfg.TTS.TimeoutSeconds)),
		Backgrounds: resources.NewHTTPBackgroundResolver(fetcher, cfg.Background.URLTemplate, seconds(cfg.Background.TimeoutSeconds)),
		Fonts:       fonts,
		Runner:      runner,
		FFprobe:     cfg.FFmpeg.ProbePath,
		Assembler:   assemble.NewAssembler(runner, cfg.FFmpeg.Path),
	}

	if cfg.Music.Enabled {
		urls := cfg.Music.URLs
		if len(urls) == 0 {
			urls = resources.DefaultMusicURLs
		}
		p.Music = resources.NewHTTPMusicResolver(fetcher, urls, seconds(cfg.Music.TimeoutSeconds))
	} else {
		log.Println("Background music disabled")
	}

	return &Components{
		Fetcher:    fetcher,
		Workspaces: manager,
		Pipeline:   p,
	}
}

// Defaults returns the request defaults and limits every transport applies.
func Defaults(cfg *config.Config) queue.Defaults {
	return queue.Defaults{
		Mode:     types.ParseMode(cfg.Render.Mode, types.ModeTypewriter),
		Language: cfg.Render.Language,
		Slow:     cfg.Render.Slow,
		MinChars: cfg.Limits.MinScriptChars,
		MaxChars: cfg.Limits.MaxScriptChars,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
