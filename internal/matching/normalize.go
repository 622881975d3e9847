package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// collaboratorMarkers cut an artist credit down to the primary artist.
var collaboratorMarkers = []string{
	" feat. ",
	" feat ",
	" featuring ",
	" ft. ",
	" ft ",
	" with ",
	" x ",
	" vs. ",
	" vs ",
}

// versionMarkers identify parenthetical or dash suffixes that name a release
// variant rather than the song itself.
var versionMarkers = []string{
	"remix",
	"remaster",
	"remastered",
	"version",
	"edit",
	"mix",
	"live",
	"acoustic",
	"instrumental",
	"demo",
	"deluxe",
	"mono",
	"stereo",
	"radio",
	"extended",
	"single",
	"album",
	"bonus",
	"cover",
	"karaoke",
}

// Normalize lowers case, strips diacritics and punctuation, and collapses
// whitespace. The result is the canonical comparison form; empty input (or
// input that is all punctuation) normalizes to "".
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if stripped, _, err := transform.String(diacriticStripper, value); err == nil {
		value = stripped
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeArtist normalizes an artist credit after trimming featured-artist
// and versus markers. "A feat. B" and "A" compare equal.
func NormalizeArtist(artist string) string {
	lowered := " " + strings.ToLower(strings.TrimSpace(artist)) + " "
	cut := len(lowered)
	markers := append([]string{" & ", ", "}, collaboratorMarkers...)
	for _, marker := range markers {
		// A marker at position zero is the artist name itself, not a credit.
		if idx := strings.Index(lowered, marker); idx > 0 && idx < cut {
			cut = idx
		}
	}
	return Normalize(lowered[:cut])
}

// NormalizeTitle normalizes a song title after dropping version suffixes:
// trailing parentheticals or bracket groups naming a variant, and dash
// suffixes like "- Remastered 2011".
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = stripVersionGroups(title, '(', ')')
	title = stripVersionGroups(title, '[', ']')
	title = stripVersionDashSuffix(title)
	return Normalize(title)
}

// TrackKey builds the normalized identity used by the completion cache.
func TrackKey(artist, title string) string {
	return NormalizeArtist(artist) + "|" + NormalizeTitle(title)
}

func stripVersionGroups(value string, open, close rune) string {
	for {
		start := strings.IndexRune(value, open)
		if start < 0 {
			return value
		}
		rest := value[start:]
		offset := strings.IndexRune(rest, close)
		if offset < 0 {
			return value
		}
		inner := rest[1:offset]
		if !containsVersionMarker(inner) {
			return value
		}
		value = strings.TrimSpace(value[:start] + rest[offset+1:])
	}
}

func stripVersionDashSuffix(value string) string {
	if idx := strings.LastIndex(value, " - "); idx >= 0 {
		if containsVersionMarker(value[idx+3:]) {
			return strings.TrimSpace(value[:idx])
		}
	}
	return value
}

func containsVersionMarker(segment string) bool {
	for _, word := range strings.Fields(strings.ToLower(segment)) {
		word = strings.Trim(word, ".,!?'\"")
		for _, marker := range versionMarkers {
			if word == marker {
				return true
			}
		}
	}
	return false
}
