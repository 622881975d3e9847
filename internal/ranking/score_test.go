package ranking_test

import (
	"testing"
	"time"

	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/config"
	"beatmatcher/internal/ranking"
)

var fixedNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func candidate(id, song, author string, order int) beatsaver.Candidate {
	return beatsaver.Candidate{
		Map: beatsaver.MapDetail{
			ID:   id,
			Name: song,
			Metadata: beatsaver.MapMetadata{
				SongName:       song,
				SongAuthorName: author,
			},
			Stats: beatsaver.MapStats{
				Score:     0.8,
				Downloads: 5000,
				Upvotes:   100,
				Downvotes: 10,
			},
			Uploaded: fixedNow.AddDate(-1, 0, 0),
		},
		Order: order,
	}
}

func TestMatchScoreWeightsTitleAndArtist(t *testing.T) {
	cfg := config.Default().Matching

	exact := ranking.MatchScore(cfg, "Daft Punk", "One More Time", candidate("a", "One More Time", "Daft Punk", 0).Map)
	if exact < 0.999 {
		t.Fatalf("exact match = %v, want ~1.0", exact)
	}

	wrongArtist := ranking.MatchScore(cfg, "Daft Punk", "One More Time", candidate("a", "One More Time", "Someone Else", 0).Map)
	if wrongArtist >= exact {
		t.Fatalf("wrong artist %v should score below exact %v", wrongArtist, exact)
	}
	// Title is weighted at 0.7, so a perfect title alone keeps the score near it.
	if wrongArtist < 0.6 {
		t.Fatalf("wrong artist = %v, want roughly the title weight", wrongArtist)
	}
}

func TestMatchScoreMissingArtistCapsAtTitleWeight(t *testing.T) {
	cfg := config.Default().Matching
	got := ranking.MatchScore(cfg, "", "One More Time", candidate("a", "One More Time", "Daft Punk", 0).Map)
	if got < cfg.TitleWeight-0.001 || got > cfg.TitleWeight+0.001 {
		t.Fatalf("artist-less exact title = %v, want the title weight %v", got, cfg.TitleWeight)
	}

	remote := ranking.MatchScore(cfg, "Daft Punk", "One More Time", candidate("a", "One More Time", "", 0).Map)
	if remote > cfg.TitleWeight+0.001 {
		t.Fatalf("missing remote artist = %v, must not exceed the title weight", remote)
	}
}

func TestMatchScoreVersionSuffixIgnored(t *testing.T) {
	cfg := config.Default().Matching
	got := ranking.MatchScore(cfg, "Daft Punk", "One More Time", candidate("a", "One More Time (Remastered 2014)", "Daft Punk", 0).Map)
	if got < 0.999 {
		t.Fatalf("remaster suffix should not lower score, got %v", got)
	}
}

func TestQualityScoreBounds(t *testing.T) {
	cfg := config.Default().Scoring

	best := beatsaver.MapDetail{
		Stats:    beatsaver.MapStats{Score: 1.0, Downloads: 200000, Upvotes: 1000},
		Uploaded: fixedNow.AddDate(0, -1, 0),
	}
	worst := beatsaver.MapDetail{
		Stats:    beatsaver.MapStats{Score: 0, Downloads: 0, Upvotes: 0, Downvotes: 50},
		Uploaded: fixedNow.AddDate(-20, 0, 0),
	}

	hi := ranking.QualityScore(cfg, best, fixedNow)
	lo := ranking.QualityScore(cfg, worst, fixedNow)
	if hi <= lo {
		t.Fatalf("quality ordering wrong: hi=%v lo=%v", hi, lo)
	}
	if hi > 1.0001 || lo < -0.0001 {
		t.Fatalf("quality out of bounds: hi=%v lo=%v", hi, lo)
	}
}

func TestRankFiltersAndOrders(t *testing.T) {
	matchCfg := config.Default().Matching
	scoreCfg := config.Default().Scoring

	lowRated := candidate("low", "One More Time", "Daft Punk", 0)
	lowRated.Map.Stats.Score = 0.2

	fewDownloads := candidate("few", "One More Time", "Daft Punk", 1)
	fewDownloads.Map.Stats.Downloads = 3

	weakTitle := candidate("weak", "Another Song Entirely", "Daft Punk", 2)
	strong := candidate("strong", "One More Time", "Daft Punk", 3)

	ranked := ranking.Rank(matchCfg, scoreCfg, "Daft Punk", "One More Time",
		[]beatsaver.Candidate{lowRated, fewDownloads, weakTitle, strong}, fixedNow)

	if len(ranked) != 2 {
		t.Fatalf("ranked = %d, want 2 after filters", len(ranked))
	}
	if ranked[0].Candidate.Map.ID != "strong" {
		t.Fatalf("best = %q, want strong", ranked[0].Candidate.Map.ID)
	}
}

func TestRankZeroMinimumsDisableFilters(t *testing.T) {
	matchCfg := config.Default().Matching
	scoreCfg := config.Default().Scoring
	scoreCfg.MinimumRating = 0
	scoreCfg.MinimumDownloads = 0

	unrated := candidate("x", "One More Time", "Daft Punk", 0)
	unrated.Map.Stats = beatsaver.MapStats{}

	ranked := ranking.Rank(matchCfg, scoreCfg, "Daft Punk", "One More Time",
		[]beatsaver.Candidate{unrated}, fixedNow)
	if len(ranked) != 1 {
		t.Fatalf("ranked = %d, want 1 with filters disabled", len(ranked))
	}
}

func TestRankTieBreaksOnOrder(t *testing.T) {
	matchCfg := config.Default().Matching
	scoreCfg := config.Default().Scoring

	first := candidate("first", "One More Time", "Daft Punk", 0)
	second := candidate("second", "One More Time", "Daft Punk", 1)

	ranked := ranking.Rank(matchCfg, scoreCfg, "Daft Punk", "One More Time",
		[]beatsaver.Candidate{second, first}, fixedNow)
	if ranked[0].Candidate.Map.ID != "first" {
		t.Fatalf("tie should break on earliest order, got %q", ranked[0].Candidate.Map.ID)
	}
}
