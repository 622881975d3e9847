package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBeatSaver()
	c.normalizeWorkflow()
	c.normalizeDifficulty()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBeatSaver() {
	c.BeatSaver.BaseURL = strings.TrimRight(strings.TrimSpace(c.BeatSaver.BaseURL), "/")
	if c.BeatSaver.BaseURL == "" {
		c.BeatSaver.BaseURL = defaultBeatSaverBaseURL
	}
	c.BeatSaver.UserAgent = strings.TrimSpace(c.BeatSaver.UserAgent)
	if c.BeatSaver.UserAgent == "" {
		c.BeatSaver.UserAgent = defaultBeatSaverUserAgent
	}
	if c.BeatSaver.RequestTimeout <= 0 {
		c.BeatSaver.RequestTimeout = defaultRequestTimeout
	}
	if c.BeatSaver.RequestsPerSecond <= 0 {
		c.BeatSaver.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.BeatSaver.MaxSearchPages <= 0 {
		c.BeatSaver.MaxSearchPages = defaultMaxSearchPages
	}
	if c.BeatSaver.CandidatesPerTrack <= 0 {
		c.BeatSaver.CandidatesPerTrack = defaultCandidatesPerTrack
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxConcurrentTasks <= 0 {
		c.Workflow.MaxConcurrentTasks = defaultMaxConcurrentTasks
	}
	if c.Workflow.MaxFailures <= 0 {
		c.Workflow.MaxFailures = defaultMaxFailures
	}
	if c.Workflow.RetryAttempts <= 0 {
		c.Workflow.RetryAttempts = defaultRetryAttempts
	}
	if c.Workflow.RetryBaseDelayMS <= 0 {
		c.Workflow.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Workflow.RetryMaxDelayMS <= 0 {
		c.Workflow.RetryMaxDelayMS = defaultRetryMaxDelayMS
	}
	if c.Workflow.DownloadRetryAttempts <= 0 {
		c.Workflow.DownloadRetryAttempts = defaultDownloadRetryAttempts
	}
	if c.Workflow.RateLimitPauseSeconds <= 0 {
		c.Workflow.RateLimitPauseSeconds = defaultRateLimitPauseSeconds
	}
}

func (c *Config) normalizeDifficulty() {
	if len(c.Difficulty.Buckets) == 0 {
		c.Difficulty.Buckets = defaultBuckets()
	}
	for i := range c.Difficulty.Buckets {
		b := &c.Difficulty.Buckets[i]
		b.Name = strings.TrimSpace(b.Name)
		b.Folder = strings.TrimSpace(b.Folder)
		if b.Folder == "" {
			b.Folder = b.Name
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
