package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MusicDir   string `toml:"music_dir"`
	OutputDir  string `toml:"output_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// BeatSaver contains configuration for the BeatSaver catalog API.
type BeatSaver struct {
	BaseURL            string  `toml:"base_url"`
	UserAgent          string  `toml:"user_agent"`
	RequestTimeout     int     `toml:"request_timeout"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
	MaxSearchPages     int     `toml:"max_search_pages"`
	CandidatesPerTrack int     `toml:"candidates_per_track"`
}

// Matching contains configuration for track-to-candidate similarity.
type Matching struct {
	TitleWeight       float64 `toml:"title_weight"`
	ArtistWeight      float64 `toml:"artist_weight"`
	MinimumSimilarity float64 `toml:"minimum_similarity"`
}

// Scoring contains configuration for candidate quality scoring.
type Scoring struct {
	RatingWeight     float64 `toml:"rating_weight"`
	DownloadWeight   float64 `toml:"download_weight"`
	UpvoteWeight     float64 `toml:"upvote_weight"`
	RecencyWeight    float64 `toml:"recency_weight"`
	MinimumRating    float64 `toml:"minimum_rating"`
	MinimumDownloads int     `toml:"minimum_downloads"`
}

// Bucket describes one difficulty band and the folder that receives it.
// MaxNPS of zero means unbounded (the band extends to infinity).
type Bucket struct {
	Name   string  `toml:"name"`
	Folder string  `toml:"folder"`
	MinNPS float64 `toml:"min_nps"`
	MaxNPS float64 `toml:"max_nps"`
}

// Difficulty contains the ordered note-density bands.
type Difficulty struct {
	Buckets []Bucket `toml:"buckets"`
}

// Workflow contains concurrency and retry configuration for a run.
type Workflow struct {
	MaxConcurrentTasks    int `toml:"max_concurrent_tasks"`
	MaxFailures           int `toml:"max_failures"`
	RetryAttempts         int `toml:"retry_attempts"`
	RetryBaseDelayMS      int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS       int `toml:"retry_max_delay_ms"`
	DownloadRetryAttempts int `toml:"download_retry_attempts"`
	RateLimitPauseSeconds int `toml:"rate_limit_pause_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for beatmatcher.
type Config struct {
	Paths      Paths      `toml:"paths"`
	BeatSaver  BeatSaver  `toml:"beatsaver"`
	Matching   Matching   `toml:"matching"`
	Scoring    Scoring    `toml:"scoring"`
	Difficulty Difficulty `toml:"difficulty"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/beatmatcher/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("beatmatcher.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. MusicDir is the
// user's library and is never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
