package render

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/codebuildervaibhav/script-to-video/internal/ffmpeg"
)

const (
	MinScriptRunes = 15
	MaxScriptRunes = 3000
)

var (
	ErrScriptTooShort = errors.New("script too short")
	ErrScriptTooLong  = errors.New("script too long")
)

// User-facing outcome texts. Exactly one is shown per job.
const (
	MsgSuccess       = "✅ आपकी Video तैयार है!\n\nनई video के लिए कोई और script भेजें!"
	MsgEncoderFailed = "❌ Video बनाने में error आई!\nकृपया दोबारा try करें।"
	MsgFailed        = "❌ कुछ गड़बड़ हो गई!\nदोबारा script भेजें।"
	MsgTooShort      = "⚠️ Script बहुत छोटी है!\nकम से कम एक पूरा sentence लिखें।"
	MsgTooLong       = "⚠️ Script बहुत लंबी है!\n3000 characters से कम रखें।"
)

// ValidateScript checks the trimmed script length in characters. Non-positive
// bounds fall back to MinScriptRunes and MaxScriptRunes.
func ValidateScript(script string, min, max int) error {
	if min <= 0 {
		min = MinScriptRunes
	}
	if max <= 0 {
		max = MaxScriptRunes
	}

	n := utf8.RuneCountInString(strings.TrimSpace(script))
	switch {
	case n < min:
		return ErrScriptTooShort
	case n > max:
		return ErrScriptTooLong
	}
	return nil
}

// IsEncoderError reports whether err came from a failed encoder pass.
func IsEncoderError(err error) bool {
	var encErr *ffmpeg.EncoderError
	return errors.As(err, &encErr)
}

// OutcomeMessage maps a job result to the text shown to the requester.
func OutcomeMessage(err error) string {
	switch {
	case err == nil:
		return MsgSuccess
	case errors.Is(err, ErrScriptTooShort):
		return MsgTooShort
	case errors.Is(err, ErrScriptTooLong):
		return MsgTooLong
	case IsEncoderError(err):
		return MsgEncoderFailed
	default:
		return MsgFailed
	}
}
