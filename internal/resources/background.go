package resources

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultBackgroundURL = "https://loremflickr.com/1280/720/{keyword}"
	FallbackKeyword      = "abstract"
)

// BackgroundResolver returns image bytes for a search keyword. ok is false
// when no image could be obtained; that is never an error.
type BackgroundResolver interface {
	Resolve(ctx context.Context, keyword string) (data []byte, ok bool)
}

// vocabulary maps script terms to search terms. Order decides ties.
var vocabulary = []struct {
	terms   []string
	keyword string
}{
	{[]string{"बारिश", "rain"}, "rain"},
	{[]string{"समुद्र", "sea", "ocean"}, "ocean"},
	{[]string{"पहाड़", "mountain", "mountains"}, "mountains"},
	{[]string{"जंगल", "forest"}, "forest"},
	{[]string{"आसमान", "sky"}, "sky"},
	{[]string{"रात", "night"}, "night"},
	{[]string{"सूरज", "sun", "sunrise"}, "sunrise"},
	{[]string{"शहर", "city"}, "city"},
	{[]string{"गाँव", "गांव", "village"}, "village"},
	{[]string{"प्यार", "love"}, "love"},
	{[]string{"दोस्त", "दोस्ती", "friend", "friendship"}, "friendship"},
	{[]string{"परिवार", "family"}, "family"},
	{[]string{"पैसा", "money", "business"}, "business"},
	{[]string{"तकनीक", "technology", "computer"}, "technology"},
	{[]string{"खेल", "sport", "sports", "cricket"}, "sports"},
	{[]string{"भारत", "india"}, "india"},
}

// KeywordFor picks a background search term for the script, falling back to
// FallbackKeyword when no known term occurs.
func KeywordFor(script string) string {
	tokens := make(map[string]struct{})
	for _, t := range strings.FieldsFunc(strings.ToLower(script), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	}) {
		tokens[t] = struct{}{}
	}

	for _, v := range vocabulary {
		for _, term := range v.terms {
			if _, ok := tokens[term]; ok {
				return v.keyword
			}
		}
	}
	return FallbackKeyword
}

// HTTPBackgroundResolver downloads an image from a URL template containing
// "{keyword}".
type HTTPBackgroundResolver struct {
	Fetcher  *Fetcher
	Template string
	Timeout  time.Duration
}

func NewHTTPBackgroundResolver(f *Fetcher, template string, timeout time.Duration) *HTTPBackgroundResolver {
	if template == "" {
		template = DefaultBackgroundURL
	}
	return &HTTPBackgroundResolver{Fetcher: f, Template: template, Timeout: timeout}
}

func (r *HTTPBackgroundResolver) Resolve(ctx context.Context, keyword string) ([]byte, bool) {
	if keyword == "" {
		keyword = FallbackKeyword
	}
	u := strings.ReplaceAll(r.Template, "{keyword}", url.PathEscape(keyword))
	return r.Fetcher.TryFetch(ctx, "background image", u, r.Timeout)
}
