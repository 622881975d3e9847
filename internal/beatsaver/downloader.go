package beatsaver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
	"beatmatcher/internal/stage"
)

// Archives are zip files; reject anything that does not start with the
// local-file header magic.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Downloader is the pipeline stage that fetches the accepted map's archive
// into the staging directory.
type Downloader struct {
	cfg     *config.Config
	catalog Catalog
	logger  *slog.Logger
	policy  services.RetryPolicy
}

// NewDownloader constructs the download stage handler.
func NewDownloader(cfg *config.Config, catalog Catalog, logger *slog.Logger) *Downloader {
	policy := retryPolicyFromConfig(cfg)
	if cfg != nil && cfg.Workflow.DownloadRetryAttempts > 0 {
		policy.MaxAttempts = cfg.Workflow.DownloadRetryAttempts
	}
	return &Downloader{
		cfg:     cfg,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "downloader"),
		policy:  policy,
	}
}

func (d *Downloader) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, d.logger)
	task.InitProgress("Downloading", "Fetching beatmap archive")
	logger.Info("starting download",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID))
	return nil
}

func (d *Downloader) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, d.logger)

	if strings.TrimSpace(task.MapID) == "" {
		return services.Wrap(services.ErrValidation, "downloading", "validate inputs", "task has no accepted map", nil)
	}
	stagingDir := strings.TrimSpace(d.cfg.Paths.StagingDir)
	if stagingDir == "" {
		return services.Wrap(services.ErrConfiguration, "downloading", "validate inputs", "staging directory not configured", nil)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "downloading", "prepare staging", "failed to create staging directory", err)
	}

	detail, err := d.mapDetail(ctx, task.MapID)
	if err != nil {
		return err
	}
	version := detail.LatestVersion()
	if version == nil || strings.TrimSpace(version.DownloadURL) == "" {
		return services.Wrap(services.ErrPermanent, "downloading", "resolve version",
			fmt.Sprintf("map %s has no downloadable version", task.MapID), nil)
	}

	archivePath := filepath.Join(stagingDir, task.MapID+".zip")
	size, err := d.fetchArchive(ctx, version.DownloadURL, archivePath)
	if err != nil {
		return err
	}

	task.ArchivePath = archivePath
	task.SetProgress("Downloading", fmt.Sprintf("Downloaded %s (%d bytes)", detail.SongName(), size), 100)
	logger.Info("download complete",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String(logging.FieldMapID, task.MapID),
		logging.String("archive", archivePath),
		logging.Int64("bytes", size))
	return nil
}

func (d *Downloader) mapDetail(ctx context.Context, id string) (*MapDetail, error) {
	var detail *MapDetail
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		detail, fetchErr = d.catalog.Map(ctx, id)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch map %s: %w", id, err)
	}
	return detail, nil
}

// fetchArchive downloads into a temp file next to the destination and
// renames into place so interrupted transfers never leave a partial
// archive under the final name.
func (d *Downloader) fetchArchive(ctx context.Context, downloadURL, dest string) (int64, error) {
	var size int64
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*.zip")
		if err != nil {
			return services.Wrap(services.ErrPlacement, "downloading", "stage archive", "failed to create temp file", err)
		}
		tmpPath := tmp.Name()
		defer func() {
			tmp.Close()
			os.Remove(tmpPath)
		}()

		n, err := d.catalog.DownloadTo(ctx, downloadURL, tmp)
		if err != nil {
			return err
		}
		if err := tmp.Close(); err != nil {
			return services.Wrap(services.ErrPlacement, "downloading", "stage archive", "failed to flush archive", err)
		}
		if err := verifyZip(tmpPath); err != nil {
			return err
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			return services.Wrap(services.ErrPlacement, "downloading", "stage archive", "failed to move archive into staging", err)
		}
		size = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

func verifyZip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrPlacement, "downloading", "verify archive", "failed to reopen archive", err)
	}
	defer f.Close()

	header := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return services.Wrap(services.ErrPermanent, "downloading", "verify archive", "archive is empty or truncated", err)
	}
	if !bytes.Equal(header, zipMagic) {
		return services.Wrap(services.ErrPermanent, "downloading", "verify archive", "response is not a zip archive", nil)
	}
	return nil
}

// HealthCheck verifies the staging directory is writable and the catalog
// client is available.
func (d *Downloader) HealthCheck(ctx context.Context) stage.Health {
	const name = "downloader"
	if d.catalog == nil {
		return stage.Unhealthy(name, "catalog client unavailable")
	}
	stagingDir := strings.TrimSpace(d.cfg.Paths.StagingDir)
	if stagingDir == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging directory unavailable: %v", err))
	}
	probe := filepath.Join(stagingDir, fmt.Sprintf(".health-%d", time.Now().UnixNano()))
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging directory not writable: %v", err))
	}
	os.Remove(probe)
	return stage.Healthy(name)
}

var _ stage.Handler = (*Downloader)(nil)
