package config

const (
	defaultMusicDir   = "~/Music"
	defaultOutputDir  = "~/beatmaps"
	defaultStagingDir = "~/.local/share/beatmatcher/staging"
	defaultLogDir     = "~/.local/share/beatmatcher/logs"

	defaultBeatSaverBaseURL   = "https://api.beatsaver.com"
	defaultBeatSaverUserAgent = "beatmatcher/dev"
	defaultRequestTimeout     = 30
	defaultRequestsPerSecond  = 2.0
	defaultMaxSearchPages     = 2
	defaultCandidatesPerTrack = 25

	defaultTitleWeight       = 0.7
	defaultArtistWeight      = 0.3
	defaultMinimumSimilarity = 0.7

	defaultRatingWeight     = 0.4
	defaultDownloadWeight   = 0.3
	defaultUpvoteWeight     = 0.2
	defaultRecencyWeight    = 0.1
	defaultMinimumRating    = 0.5
	defaultMinimumDownloads = 10

	defaultMaxConcurrentTasks    = 3
	defaultMaxFailures           = 10
	defaultRetryAttempts         = 3
	defaultRetryBaseDelayMS      = 500
	defaultRetryMaxDelayMS       = 8000
	defaultDownloadRetryAttempts = 3
	defaultRateLimitPauseSeconds = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultBuckets() []Bucket {
	return []Bucket{
		{Name: "Easy", Folder: "Easy (0-4 blocks_s)", MinNPS: 0, MaxNPS: 4},
		{Name: "Medium", Folder: "Medium (4-7 blocks_s)", MinNPS: 4, MaxNPS: 7},
		{Name: "Hard", Folder: "Hard (7+ blocks_s)", MinNPS: 7, MaxNPS: 0},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MusicDir:   defaultMusicDir,
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		BeatSaver: BeatSaver{
			BaseURL:            defaultBeatSaverBaseURL,
			UserAgent:          defaultBeatSaverUserAgent,
			RequestTimeout:     defaultRequestTimeout,
			RequestsPerSecond:  defaultRequestsPerSecond,
			MaxSearchPages:     defaultMaxSearchPages,
			CandidatesPerTrack: defaultCandidatesPerTrack,
		},
		Matching: Matching{
			TitleWeight:       defaultTitleWeight,
			ArtistWeight:      defaultArtistWeight,
			MinimumSimilarity: defaultMinimumSimilarity,
		},
		Scoring: Scoring{
			RatingWeight:     defaultRatingWeight,
			DownloadWeight:   defaultDownloadWeight,
			UpvoteWeight:     defaultUpvoteWeight,
			RecencyWeight:    defaultRecencyWeight,
			MinimumRating:    defaultMinimumRating,
			MinimumDownloads: defaultMinimumDownloads,
		},
		Difficulty: Difficulty{
			Buckets: defaultBuckets(),
		},
		Workflow: Workflow{
			MaxConcurrentTasks:    defaultMaxConcurrentTasks,
			MaxFailures:           defaultMaxFailures,
			RetryAttempts:         defaultRetryAttempts,
			RetryBaseDelayMS:      defaultRetryBaseDelayMS,
			RetryMaxDelayMS:       defaultRetryMaxDelayMS,
			DownloadRetryAttempts: defaultDownloadRetryAttempts,
			RateLimitPauseSeconds: defaultRateLimitPauseSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
