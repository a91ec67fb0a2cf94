// Package assemble turns rendered frames and narration into the final MP4.
package assemble

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/codebuildervaibhav/script-to-video/internal/ffmpeg"
	"github.com/codebuildervaibhav/script-to-video/internal/timing"
	"github.com/codebuildervaibhav/script-to-video/internal/workspace"
)

const (
	voiceVolume = 1.5
	musicVolume = 0.15
)

// Input is everything needed to encode one job.
type Input struct {
	Workspace *workspace.Workspace
	Items     []Item
	// Narration is the measured (or fallback) narration length.
	Narration float64
	// MusicPath is empty when no music was fetched.
	MusicPath string
}

// Assembler runs the encoder passes of a job.
type Assembler struct {
	Runner ffmpeg.Runner
	FFmpeg string
}

// NewAssembler creates an assembler that invokes the given ffmpeg binary.
func NewAssembler(r ffmpeg.Runner, bin string) *Assembler {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Assembler{Runner: r, FFmpeg: bin}
}

// Assemble produces final_video.mp4 in the workspace and returns its path.
// Any encoder failure is returned as *ffmpeg.EncoderError.
func (a *Assembler) Assemble(ctx context.Context, in Input) (string, error) {
	ws := in.Workspace
	manifest := ws.Path(workspace.ManifestFile)
	silent := ws.Path(workspace.SilentVideoFile)
	final := ws.Path(workspace.FinalVideoFile)

	if err := WriteManifest(manifest, in.Items); err != nil {
		return "", err
	}

	log.Printf("[%s] Encoding %d manifest entries", ws.JobID, len(in.Items))
	if err := a.silentVideo(ctx, manifest, silent); err != nil {
		return "", err
	}

	audio := ws.Path(workspace.AudioFile)
	if in.MusicPath != "" {
		mixed := ws.Path(workspace.MixedAudioFile)
		if err := a.mix(ctx, audio, in.MusicPath, in.Narration, mixed); err != nil {
			return "", err
		}
		audio = mixed
	}

	if err := a.mux(ctx, silent, audio, final); err != nil {
		return "", err
	}

	if _, err := os.Stat(final); err != nil {
		return "", fmt.Errorf("encoder reported success but output is missing: %w", err)
	}
	return final, nil
}

func (a *Assembler) silentVideo(ctx context.Context, manifest, out string) error {
	return ffmpeg.Encode(ctx, a.Runner, a.FFmpeg, "silent video",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-vf", fmt.Sprintf("fps=%d,scale=1280:720,format=yuv420p", timing.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		out,
	)
}

func (a *Assembler) mix(ctx context.Context, voice, music string, narration float64, out string) error {
	filter := fmt.Sprintf(
		"[0:a]volume=%.2f[v];[1:a]volume=%.2f,atrim=duration=%.3f[m];[v][m]amix=inputs=2:duration=first:dropout_transition=0",
		voiceVolume, musicVolume, narration,
	)
	return ffmpeg.Encode(ctx, a.Runner, a.FFmpeg, "audio mix",
		"-y",
		"-i", voice,
		"-i", music,
		"-filter_complex", filter,
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	)
}

func (a *Assembler) mux(ctx context.Context, video, audio, out string) error {
	return ffmpeg.Encode(ctx, a.Runner, a.FFmpeg, "mux",
		"-y",
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		out,
	)
}
