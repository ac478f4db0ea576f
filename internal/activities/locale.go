package activities

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var collationMatcher = language.NewMatcher(collate.Supported())

// MatchLocale picks the collation locale for an Accept-Language header value.
func MatchLocale(acceptLanguage string, fallback language.Tag) language.Tag {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	tag, _, confidence := collationMatcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return tag
}

// NewCollator returns a locale-aware Comparer. Collators keep internal
// buffers, so each goroutine needs its own.
func NewCollator(tag language.Tag) *collate.Collator {
	return collate.New(tag)
}
