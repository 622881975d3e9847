package matching_test

import (
	"testing"

	"beatmatcher/internal/matching"
)

func TestSimilarityBounds(t *testing.T) {
	if got := matching.Similarity("", "anything"); got != 0 {
		t.Fatalf("empty side must score 0, got %f", got)
	}
	if got := matching.Similarity("same words", "same words"); got != 1 {
		t.Fatalf("identical strings must score 1, got %f", got)
	}
	got := matching.Similarity("one more time", "harder better faster")
	if got < 0 || got >= 0.5 {
		t.Fatalf("unrelated strings scored %f", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "one more time", "one more time club"
	if matching.Similarity(a, b) != matching.Similarity(b, a) {
		t.Fatal("similarity must be symmetric")
	}
}

func TestSimilarityTokenReorder(t *testing.T) {
	got := matching.Similarity("time more one", "one more time")
	if got != 1 {
		t.Fatalf("reordered tokens should score 1 via token set, got %f", got)
	}
}

func TestSimilaritySmallEdit(t *testing.T) {
	got := matching.Similarity("harder better faster stronger", "harder beter faster stronger")
	if got < 0.9 {
		t.Fatalf("one-character edit should stay high, got %f", got)
	}
}

func TestSimilarityDeterministic(t *testing.T) {
	first := matching.Similarity("around the world", "around the word")
	for i := 0; i < 5; i++ {
		if matching.Similarity("around the world", "around the word") != first {
			t.Fatal("similarity must be deterministic")
		}
	}
}
