// Package timing converts measured narration length into display durations.
package timing

import (
	"math"

	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

const (
	// FPS is the fixed typewriter frame rate and encoder output rate.
	FPS = 24

	MinSlideSeconds = 2.0

	// Substituted when the narration length cannot be measured.
	FallbackSecondsPerSlide   = 4.0
	FallbackTypewriterSeconds = 30.0
)

// FrameInterval is the display time of a single typewriter frame.
const FrameInterval = 1.0 / FPS

// Entry is one manifest slot: the 0-based unit it shows and for how long.
type Entry struct {
	Unit     int
	Duration float64
}

// Plan is the ordered display schedule of a job.
type Plan struct {
	Mode          types.Mode
	AudioDuration float64
	Measured      bool
	Entries       []Entry

	// Typewriter only.
	TotalFrames   int
	FramesPerWord int
}

// Total returns the nominal running time of the schedule.
func (p Plan) Total() float64 {
	var sum float64
	for _, e := range p.Entries {
		sum += e.Duration
	}
	return sum
}

// New plans units for the given mode. measured reports whether audio came from
// a successful probe; when false the mode's fallback length is used instead.
func New(mode types.Mode, audio float64, measured bool, units int) Plan {
	if mode == types.ModeTypewriter {
		return PlanTypewriter(audio, measured, units)
	}
	return PlanSlides(audio, measured, units)
}

// PlanSlides gives every slide an equal share of the narration, never less
// than MinSlideSeconds.
func PlanSlides(audio float64, measured bool, slides int) Plan {
	if slides < 1 {
		slides = 1
	}
	if !measured || audio < 0 {
		audio = float64(slides) * FallbackSecondsPerSlide
	}

	perSlide := math.Max(audio/float64(slides), MinSlideSeconds)

	entries := make([]Entry, slides)
	for i := range entries {
		entries[i] = Entry{Unit: i, Duration: perSlide}
	}

	return Plan{
		Mode:          types.ModeSlide,
		AudioDuration: audio,
		Measured:      measured,
		Entries:       entries,
	}
}

// PlanTypewriter allots each word the same number of frames and pads the tail
// with the full text so the video never ends before the narration.
func PlanTypewriter(audio float64, measured bool, words int) Plan {
	if words < 1 {
		words = 1
	}
	if !measured || audio < 0 {
		audio = FallbackTypewriterSeconds
	}

	total := int(math.Floor(audio * FPS))
	perWord := total / words
	if perWord < 1 {
		perWord = 1
	}

	count := words * perWord
	if count < total {
		count = total
	}

	entries := make([]Entry, 0, count)
	for w := 0; w < words; w++ {
		for f := 0; f < perWord; f++ {
			entries = append(entries, Entry{Unit: w, Duration: FrameInterval})
		}
	}
	for len(entries) < total {
		entries = append(entries, Entry{Unit: words - 1, Duration: FrameInterval})
	}

	return Plan{
		Mode:          types.ModeTypewriter,
		AudioDuration: audio,
		Measured:      measured,
		Entries:       entries,
		TotalFrames:   total,
		FramesPerWord: perWord,
	}
}
