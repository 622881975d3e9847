package beatmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
	"beatmatcher/internal/stage"
)

// Analyzer is the pipeline stage that derives a task's difficulty bucket
// from the downloaded archive.
type Analyzer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewAnalyzer constructs the analysis stage handler.
func NewAnalyzer(cfg *config.Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "analyzer"),
	}
}

func (a *Analyzer) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, a.logger)
	task.InitProgress("Analyzing", "Reading beatmap difficulties")
	logger.Info("starting analysis",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID))
	return nil
}

func (a *Analyzer) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, a.logger)

	if strings.TrimSpace(task.ArchivePath) == "" {
		return services.Wrap(services.ErrValidation, "analyzing", "validate inputs", "task has no downloaded archive", nil)
	}

	analysis, err := AnalyzeArchive(task.ArchivePath)
	if err != nil {
		// A malformed archive still gets placed, just without a
		// difficulty classification.
		if errors.Is(err, services.ErrParse) {
			task.Bucket = queue.BucketUnclassified
			task.NotesPerSecond = 0
			task.PeakNPS = 0
			task.SetProgress("Analyzing", "Archive unparseable, leaving unclassified", 100)
			logger.Warn("archive unparseable",
				logging.String(logging.FieldTrack, task.Label()),
				logging.String(logging.FieldMapID, task.MapID),
				logging.Error(err))
			return nil
		}
		return err
	}

	hardest := analysis.Hardest()
	task.NotesPerSecond = hardest.NotesPerSecond
	task.PeakNPS = hardest.PeakNPS
	task.Bucket = BucketFor(a.cfg.Difficulty, hardest.NotesPerSecond)

	task.SetProgress("Analyzing",
		fmt.Sprintf("%s: %.2f notes/s (peak %.1f)", task.Bucket, hardest.NotesPerSecond, hardest.PeakNPS), 100)
	logger.Info("analysis complete",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID),
		logging.String("bucket", task.Bucket),
		logging.String("difficulty", hardest.Difficulty),
		logging.Float64("nps", hardest.NotesPerSecond),
		logging.Float64("peak_nps", hardest.PeakNPS))
	return nil
}

// BucketFor maps a sustained note density onto the configured bucket
// names. A bucket with MaxNPS zero is open-ended.
func BucketFor(cfg config.Difficulty, nps float64) string {
	for _, bucket := range cfg.Buckets {
		if nps < bucket.MinNPS {
			continue
		}
		if bucket.MaxNPS == 0 || nps < bucket.MaxNPS {
			return bucket.Name
		}
	}
	return queue.BucketUnclassified
}

// HealthCheck verifies difficulty buckets are configured.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	const name = "analyzer"
	if a.cfg == nil || len(a.cfg.Difficulty.Buckets) == 0 {
		return stage.Unhealthy(name, "no difficulty buckets configured")
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Analyzer)(nil)
