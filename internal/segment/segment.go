// Package segment splits a narration script into ordered visual units.
//
// Slide mode yields one unit per sentence (long sentences are hard-wrapped),
// typewriter mode yields one unit per word holding the cumulative word prefix.
package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

const (
	// Danda is the Devanagari full stop.
	Danda = "।"

	minFragmentRunes = 3
	longSlideRunes   = 60
	slideWrapRunes   = 55
)

var sentenceEnd = regexp.MustCompile(`[।.!?]+`)

// Unit is one displayable piece of content, numbered from 1.
type Unit struct {
	Index int
	Text  string
	// Words is the number of tokens the unit covers in typewriter mode.
	Words int
}

// Segment returns the visual units for text in the given mode. The result is
// never empty.
func Segment(text string, mode types.Mode) []Unit {
	if mode == types.ModeTypewriter {
		return Prefixes(Tokens(text))
	}

	parts := Slides(text)
	units := make([]Unit, len(parts))
	for i, p := range parts {
		units[i] = Unit{Index: i + 1, Text: p}
	}
	return units
}

// Slides splits text on sentence terminators, drops noise fragments and wraps
// overly long sentences. If nothing survives, the whole input is one slide.
func Slides(text string) []string {
	var parts []string
	for _, frag := range sentenceEnd.Split(text, -1) {
		frag = strings.TrimSpace(frag)
		if utf8.RuneCountInString(frag) < minFragmentRunes {
			continue
		}
		if utf8.RuneCountInString(frag) > longSlideRunes {
			parts = append(parts, Wrap(frag, slideWrapRunes)...)
			continue
		}
		parts = append(parts, frag)
	}

	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

// Tokens pads the danda into its own token and splits on whitespace.
func Tokens(text string) []string {
	tokens := strings.Fields(strings.ReplaceAll(text, Danda, " "+Danda+" "))
	if len(tokens) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return tokens
}

// Prefixes builds the cumulative typewriter units: unit i holds tokens[0..i].
func Prefixes(tokens []string) []Unit {
	units := make([]Unit, len(tokens))
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
		units[i] = Unit{Index: i + 1, Text: b.String(), Words: i + 1}
	}
	return units
}

// Wrap greedily packs whitespace-separated words into lines of at most width
// runes. Words longer than width are broken across lines, starting on the
// current line when it has room.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}

	var (
		lines   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, string(current))
			current = current[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)

		if len(w) > width {
			// Fill the rest of the current line before breaking the word.
			if n := width - len(current) - 1; len(current) > 0 && n > 0 {
				current = append(current, ' ')
				current = append(current, w[:n]...)
				w = w[n:]
			}
			flush()
			for len(w) > width {
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
			current = append(current, w...)
			continue
		}

		switch {
		case len(current) == 0:
			current = append(current, w...)
		case len(current)+1+len(w) <= width:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			flush()
			current = append(current, w...)
		}
	}
	flush()

	return lines
}
