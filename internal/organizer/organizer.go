package organizer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
	"beatmatcher/internal/stage"
	"beatmatcher/internal/textutil"
)

// Organizer is the pipeline stage that moves downloaded archives into
// their difficulty bucket folder.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewOrganizer constructs the placement stage handler.
func NewOrganizer(cfg *config.Config, logger *slog.Logger) *Organizer {
	return &Organizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "organizer"),
	}
}

func (o *Organizer) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, o.logger)
	task.InitProgress("Placing", "Moving archive into library")
	logger.Info("starting placement",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID),
		logging.String("bucket", task.Bucket))
	return nil
}

func (o *Organizer) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, o.logger)

	if strings.TrimSpace(task.ArchivePath) == "" {
		return services.Wrap(services.ErrValidation, "placing", "validate inputs", "task has no staged archive", nil)
	}
	outputDir := strings.TrimSpace(o.cfg.Paths.OutputDir)
	if outputDir == "" {
		return services.Wrap(services.ErrConfiguration, "placing", "validate inputs", "output directory not configured", nil)
	}

	bucketDir := filepath.Join(outputDir, o.bucketFolder(task.Bucket))
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return services.Wrap(services.ErrPlacement, "placing", "ensure bucket dir", "failed to create bucket directory", err)
	}

	target, already, err := o.resolveTarget(bucketDir, task)
	if err != nil {
		return err
	}
	if already {
		if err := os.Remove(task.ArchivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove duplicate staged archive", logging.Error(err))
		}
		task.FinalPath = target
		task.SetProgress("Placing", fmt.Sprintf("Already in library: %s", filepath.Base(target)), 100)
		logger.Info("archive already placed",
			logging.String(logging.FieldTrack, task.Label()),
			logging.String("final_path", target))
		return nil
	}

	if err := moveFile(task.ArchivePath, target); err != nil {
		return services.Wrap(services.ErrPlacement, "placing", "move archive", "failed to move archive into library", err)
	}

	task.FinalPath = target
	task.SetProgress("Placing", fmt.Sprintf("Placed as %s", filepath.Base(target)), 100)
	logger.Info("placement completed",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID),
		logging.String("final_path", target))
	return nil
}

// bucketFolder maps a bucket name onto its configured folder, falling
// back to the sanitized name itself for unknown buckets.
func (o *Organizer) bucketFolder(bucket string) string {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		bucket = queue.BucketUnclassified
	}
	for _, b := range o.cfg.Difficulty.Buckets {
		if b.Name == bucket && strings.TrimSpace(b.Folder) != "" {
			return textutil.SanitizeFileName(b.Folder)
		}
	}
	return textutil.SanitizeFileName(bucket)
}

// targetName builds "<mapID>_<sanitized title>.zip" with the title
// truncated to keep the whole name within filesystem limits.
func targetName(task *queue.Task) string {
	title := textutil.SanitizeFileName(task.MapName)
	if title == "" {
		title = textutil.SanitizeFileName(task.TrackTitle)
	}
	name := task.MapID
	if title != "" {
		name += "_" + title
	}
	return textutil.TruncateFileName(name, textutil.DefaultMaxFileName) + ".zip"
}

// resolveTarget picks the destination path. An existing file with
// identical content means the map is already in the library; a different
// file under the same name gets a numeric disambiguator.
func (o *Organizer) resolveTarget(bucketDir string, task *queue.Task) (string, bool, error) {
	const maxAttempts = 100

	base := targetName(task)
	stem := strings.TrimSuffix(base, ".zip")

	stagedSum, err := fileChecksum(task.ArchivePath)
	if err != nil {
		return "", false, services.Wrap(services.ErrUnreadable, "placing", "checksum archive", "failed to read staged archive", err)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.zip", stem, attempt)
		}
		candidate := filepath.Join(bucketDir, name)

		_, statErr := os.Stat(candidate)
		if errors.Is(statErr, os.ErrNotExist) {
			return candidate, false, nil
		}
		if statErr != nil {
			return "", false, services.Wrap(services.ErrPlacement, "placing", "probe target", "failed to inspect existing file", statErr)
		}

		existingSum, err := fileChecksum(candidate)
		if err != nil {
			return "", false, services.Wrap(services.ErrPlacement, "placing", "checksum target", "failed to read existing file", err)
		}
		if existingSum == stagedSum {
			return candidate, true, nil
		}
	}
	return "", false, services.Wrap(services.ErrPlacement, "placing", "allocate filename",
		fmt.Sprintf("exhausted filename slots for %s", base), nil)
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// moveFile renames src to dst, falling back to copy and remove when the
// two sit on different filesystems.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile writes through a temp file in the destination folder and
// renames into place, so readers never observe a partial archive.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".placing-*.zip")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

// HealthCheck verifies the output directory is configured and writable.
func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	if o.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	outputDir := strings.TrimSpace(o.cfg.Paths.OutputDir)
	if outputDir == "" {
		return stage.Unhealthy(name, "output directory not configured")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("output directory unavailable: %v", err))
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Organizer)(nil)
