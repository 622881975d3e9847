package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateDifficulty(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		return errors.New("paths.music_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.OutputDir == c.Paths.MusicDir {
		return errors.New("paths.output_dir must differ from paths.music_dir")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.TitleWeight < 0 || c.Matching.ArtistWeight < 0 {
		return errors.New("matching weights must be non-negative")
	}
	sum := c.Matching.TitleWeight + c.Matching.ArtistWeight
	if sum <= 0 {
		return errors.New("matching.title_weight and matching.artist_weight must not both be zero")
	}
	if diff := sum - 1.0; diff > 0.001 || diff < -0.001 {
		return fmt.Errorf("matching weights must sum to 1.0, got %.3f", sum)
	}
	if c.Matching.MinimumSimilarity < 0 || c.Matching.MinimumSimilarity > 1 {
		return errors.New("matching.minimum_similarity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateScoring() error {
	for key, value := range map[string]float64{
		"scoring.rating_weight":   c.Scoring.RatingWeight,
		"scoring.download_weight": c.Scoring.DownloadWeight,
		"scoring.upvote_weight":   c.Scoring.UpvoteWeight,
		"scoring.recency_weight":  c.Scoring.RecencyWeight,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	if c.Scoring.MinimumRating < 0 || c.Scoring.MinimumRating > 1 {
		return errors.New("scoring.minimum_rating must be between 0 and 1")
	}
	if c.Scoring.MinimumDownloads < 0 {
		return errors.New("scoring.minimum_downloads must be >= 0")
	}
	return nil
}

func (c *Config) validateDifficulty() error {
	buckets := c.Difficulty.Buckets
	if len(buckets) == 0 {
		return errors.New("difficulty.buckets must contain at least one bucket")
	}
	for i, b := range buckets {
		if b.Name == "" {
			return fmt.Errorf("difficulty.buckets[%d].name must be set", i)
		}
		if b.MinNPS < 0 {
			return fmt.Errorf("difficulty.buckets[%d].min_nps must be >= 0", i)
		}
		if b.MaxNPS != 0 && b.MaxNPS <= b.MinNPS {
			return fmt.Errorf("difficulty.buckets[%d].max_nps must exceed min_nps", i)
		}
	}
	if buckets[0].MinNPS != 0 {
		return errors.New("difficulty.buckets must start at 0 nps")
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i-1].MaxNPS == 0 {
			return errors.New("difficulty.buckets: only the last bucket may be unbounded")
		}
		if buckets[i].MinNPS != buckets[i-1].MaxNPS {
			return fmt.Errorf("difficulty.buckets[%d] must begin where the previous bucket ends", i)
		}
	}
	if buckets[len(buckets)-1].MaxNPS != 0 {
		return errors.New("difficulty.buckets: the last bucket must be unbounded (max_nps = 0)")
	}
	return nil
}
