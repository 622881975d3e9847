package ranking

import (
	"math"
	"sort"
	"time"

	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/config"
	"beatmatcher/internal/matching"
)

// downloadCeiling is the download count treated as fully saturated when
// log-normalizing popularity. Anything past 100k scores 1.0.
const downloadCeiling = 5.0

// recencyHorizonYears is the age at which a map's recency contribution
// reaches zero.
const recencyHorizonYears = 5.0

// Scored pairs a candidate with its computed match and quality scores.
type Scored struct {
	Candidate  beatsaver.Candidate
	MatchScore float64
	Quality    float64
}

// MatchScore computes the weighted similarity between a local track and a
// catalog record. A missing artist on either side contributes zero, so the
// composite tops out at the title weight.
func MatchScore(cfg config.Matching, artist, title string, candidate beatsaver.MapDetail) float64 {
	titleScore := matching.Similarity(
		matching.NormalizeTitle(title),
		matching.NormalizeTitle(candidate.SongName()),
	)

	artistScore := matching.Similarity(
		matching.NormalizeArtist(artist),
		matching.NormalizeArtist(candidate.SongAuthor()),
	)
	return cfg.TitleWeight*titleScore + cfg.ArtistWeight*artistScore
}

// QualityScore blends community statistics into a single [0, 1] figure:
// the catalog rating, log-normalized downloads, the damped upvote ratio,
// and how recently the map was uploaded.
func QualityScore(cfg config.Scoring, detail beatsaver.MapDetail, now time.Time) float64 {
	downloads := math.Log10(float64(detail.Stats.Downloads)+1) / downloadCeiling
	if downloads > 1 {
		downloads = 1
	}

	recency := 0.0
	if !detail.Uploaded.IsZero() {
		ageYears := now.Sub(detail.Uploaded).Hours() / (24 * 365.25)
		recency = 1 - ageYears/recencyHorizonYears
		if recency < 0 {
			recency = 0
		}
		if recency > 1 {
			recency = 1
		}
	}

	return cfg.RatingWeight*detail.Stats.Score +
		cfg.DownloadWeight*downloads +
		cfg.UpvoteWeight*detail.Stats.UpvoteRatio() +
		cfg.RecencyWeight*recency
}

// passesFilters reports whether a candidate clears the configured quality
// floors. A zero minimum disables its filter.
func passesFilters(cfg config.Scoring, detail beatsaver.MapDetail) bool {
	if cfg.MinimumRating > 0 && detail.Stats.Score < cfg.MinimumRating {
		return false
	}
	if cfg.MinimumDownloads > 0 && detail.Stats.Downloads < cfg.MinimumDownloads {
		return false
	}
	return true
}

// Rank scores every candidate that clears the quality filters and orders
// them best first. Ties break on match score, then rating, then downloads,
// then earliest search position.
func Rank(matchCfg config.Matching, scoreCfg config.Scoring, artist, title string, candidates []beatsaver.Candidate, now time.Time) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, candidate := range candidates {
		if !passesFilters(scoreCfg, candidate.Map) {
			continue
		}
		scored = append(scored, Scored{
			Candidate:  candidate,
			MatchScore: MatchScore(matchCfg, artist, title, candidate.Map),
			Quality:    QualityScore(scoreCfg, candidate.Map, now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Candidate.Map.Stats.Score != b.Candidate.Map.Stats.Score {
			return a.Candidate.Map.Stats.Score > b.Candidate.Map.Stats.Score
		}
		if a.Candidate.Map.Stats.Downloads != b.Candidate.Map.Stats.Downloads {
			return a.Candidate.Map.Stats.Downloads > b.Candidate.Map.Stats.Downloads
		}
		return a.Candidate.Order < b.Candidate.Order
	})
	return scored
}
