package beatsaver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
)

func downloadConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Workflow.RetryBaseDelayMS = 1
	cfg.Workflow.RetryMaxDelayMS = 2
	return cfg
}

func downloadTask() *queue.Task {
	return &queue.Task{
		ID:          1,
		TrackTitle:  "One More Time",
		TrackArtist: "Daft Punk",
		MapID:       "1a2b",
		Status:      queue.StatusDownloading,
	}
}

func mapWithVersion(id, downloadURL string) *beatsaver.MapDetail {
	return &beatsaver.MapDetail{
		ID:   id,
		Name: "One More Time",
		Metadata: beatsaver.MapMetadata{
			SongName: "One More Time",
		},
		Versions: []beatsaver.MapVersion{
			{Hash: "abc", CreatedAt: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), DownloadURL: downloadURL},
		},
	}
}

func TestDownloaderStagesArchive(t *testing.T) {
	archive := []byte("PK\x03\x04 beatmap contents")
	catalog := &fakeCatalog{
		mapDetail: mapWithVersion("1a2b", "https://cdn.example/1a2b.zip"),
		archive:   archive,
	}
	cfg := downloadConfig(t)
	downloader := beatsaver.NewDownloader(&cfg, catalog, logging.NewNop())

	task := downloadTask()
	if err := downloader.Prepare(context.Background(), task); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := downloader.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := filepath.Join(cfg.Paths.StagingDir, "1a2b.zip")
	if task.ArchivePath != want {
		t.Fatalf("ArchivePath = %q, want %q", task.ArchivePath, want)
	}
	data, err := os.ReadFile(task.ArchivePath)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if string(data) != string(archive) {
		t.Fatalf("archive contents differ")
	}

	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("staging dir has %d entries, want only the archive", len(entries))
	}
}

func TestDownloaderRejectsNonZipPayload(t *testing.T) {
	catalog := &fakeCatalog{
		mapDetail: mapWithVersion("1a2b", "https://cdn.example/1a2b.zip"),
		archive:   []byte("<html>not found</html>"),
	}
	cfg := downloadConfig(t)
	downloader := beatsaver.NewDownloader(&cfg, catalog, logging.NewNop())

	task := downloadTask()
	err := downloader.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
	if task.ArchivePath != "" {
		t.Fatalf("ArchivePath = %q, want empty after failed download", task.ArchivePath)
	}
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir has %d entries, want none after cleanup", len(entries))
	}
}

func TestDownloaderRejectsTruncatedArchive(t *testing.T) {
	catalog := &fakeCatalog{
		mapDetail: mapWithVersion("1a2b", "https://cdn.example/1a2b.zip"),
		archive:   []byte("PK"),
	}
	cfg := downloadConfig(t)
	downloader := beatsaver.NewDownloader(&cfg, catalog, logging.NewNop())

	task := downloadTask()
	err := downloader.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent for a short payload", err)
	}
	if task.ArchivePath != "" {
		t.Fatalf("ArchivePath = %q, want empty after failed download", task.ArchivePath)
	}
}

func TestDownloaderRequiresAcceptedMap(t *testing.T) {
	cfg := downloadConfig(t)
	downloader := beatsaver.NewDownloader(&cfg, &fakeCatalog{}, logging.NewNop())

	task := downloadTask()
	task.MapID = ""
	if err := downloader.Execute(context.Background(), task); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestDownloaderNoDownloadableVersion(t *testing.T) {
	catalog := &fakeCatalog{
		mapDetail: &beatsaver.MapDetail{ID: "1a2b", Name: "One More Time"},
	}
	cfg := downloadConfig(t)
	downloader := beatsaver.NewDownloader(&cfg, catalog, logging.NewNop())

	if err := downloader.Execute(context.Background(), downloadTask()); !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
}

func TestDownloaderRetriesTransientFetch(t *testing.T) {
	catalog := &fakeCatalog{
		mapErr: services.Wrap(services.ErrTransient, "catalog", "map detail", "catalog returned 503", nil),
	}
	cfg := downloadConfig(t)
	cfg.Workflow.DownloadRetryAttempts = 2
	downloader := beatsaver.NewDownloader(&cfg, catalog, logging.NewNop())

	if err := downloader.Execute(context.Background(), downloadTask()); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
}

func TestDownloaderHealthCheck(t *testing.T) {
	cfg := downloadConfig(t)
	downloader := beatsaver.NewDownloader(&cfg, &fakeCatalog{}, logging.NewNop())
	if health := downloader.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}

	cfg.Paths.StagingDir = ""
	broken := beatsaver.NewDownloader(&cfg, &fakeCatalog{}, logging.NewNop())
	if health := broken.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy without staging directory")
	}
}
