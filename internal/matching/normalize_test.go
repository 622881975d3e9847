package matching_test

import (
	"testing"

	"beatmatcher/internal/matching"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "HELLO World", "hello world"},
		{"diacritics", "Beyoncé Café", "beyonce cafe"},
		{"punctuation", "don't-stop! (now)", "don t stop now"},
		{"whitespace", "  a \t b  ", "a b"},
		{"empty", "", ""},
		{"only punctuation", "!!!...", ""},
		{"digits kept", "Track 01", "track 01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matching.Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeArtist(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Daft Punk feat. Pharrell Williams", "daft punk"},
		{"Daft Punk ft. Pharrell", "daft punk"},
		{"Simon & Garfunkel", "simon"},
		{"Crosby, Stills, Nash", "crosby"},
		{"Aerosmith", "aerosmith"},
		{"X Ambassadors", "x ambassadors"},
	}
	for _, tc := range cases {
		if got := matching.NormalizeArtist(tc.input); got != tc.want {
			t.Fatalf("NormalizeArtist(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"One More Time (Club Mix)", "one more time"},
		{"Africa - 2018 Remaster", "africa"},
		{"Song [Radio Edit]", "song"},
		{"(What's The Story) Morning Glory", "what s the story morning glory"},
		{"Time (Live) (Remastered)", "time"},
		{"Plain Title", "plain title"},
	}
	for _, tc := range cases {
		if got := matching.NormalizeTitle(tc.input); got != tc.want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTrackKeyStableAcrossVariants(t *testing.T) {
	a := matching.TrackKey("Daft Punk feat. Pharrell", "Get Lucky (Radio Edit)")
	b := matching.TrackKey("daft punk", "get lucky")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}
