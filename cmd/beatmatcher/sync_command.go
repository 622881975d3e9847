package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"beatmatcher/internal/audio"
	"beatmatcher/internal/beatmap"
	"beatmatcher/internal/beatsaver"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/matching"
	"beatmatcher/internal/organizer"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/ranking"
	"beatmatcher/internal/workflow"
)

func newSyncCommand(cmdCtx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scan the music library and download matching beatmaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "beatmatcher.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return errors.New("another beatmatcher run is already in progress")
			}
			defer func() { _ = lock.Unlock() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			scanner := audio.NewScanner(logger)
			tracks, err := scanner.Scan(ctx, cfg.Paths.MusicDir)
			if err != nil {
				return fmt.Errorf("scan music library: %w", err)
			}
			if len(tracks) == 0 {
				fmt.Fprintf(out, "No audio files found under %s\n", cfg.Paths.MusicDir)
				return nil
			}

			enqueued := 0
			for _, track := range tracks {
				key := matching.TrackKey(track.Artist, track.Title)
				if _, err := store.NewTrack(ctx, track.Path, track.Title, track.Artist, track.Album, key); err != nil {
					return fmt.Errorf("enqueue %s: %w", track.Path, err)
				}
				enqueued++
			}
			fmt.Fprintf(out, "Queued %d tracks from %s\n", enqueued, cfg.Paths.MusicDir)

			client, err := beatsaver.New(cfg.BeatSaver)
			if err != nil {
				return fmt.Errorf("initialize catalog client: %w", err)
			}

			stages := workflow.StageSet{
				Searcher:   beatsaver.NewSearcher(cfg, client, logger),
				Scorer:     ranking.NewScorer(cfg, logger),
				Downloader: beatsaver.NewDownloader(cfg, client, logger),
				Analyzer:   beatmap.NewAnalyzer(cfg, logger),
				Organizer:  organizer.NewOrganizer(cfg, logger),
			}

			opts := []workflow.ManagerOption{workflow.WithDryRun(dryRun)}
			progress := newProgressObserver(out, enqueued)
			if progress != nil {
				opts = append(opts, workflow.WithObserver(progress))
			}

			manager := workflow.NewManager(cfg, store, logger, stages, opts...)
			runID := uuid.NewString()
			summary, runErr := manager.Run(ctx, runID)
			if progress != nil {
				progress.Finish()
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Result", "Count"},
				[][]string{
					{"Processed", strconv.Itoa(summary.Processed)},
					{"Completed", strconv.Itoa(summary.Completed)},
					{"Rejected", strconv.Itoa(summary.Rejected)},
					{"Failed", strconv.Itoa(summary.Failed)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))

			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					return runErr
				}
				return fmt.Errorf("sync run: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Score matches without downloading anything")
	return cmd
}
