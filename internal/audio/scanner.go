package audio

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"beatmatcher/internal/logging"
)

var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".ogg":  {},
	".wav":  {},
	".m4a":  {},
	".aac":  {},
}

// Scanner walks a music directory and builds Track records from embedded
// tags, falling back to "Artist - Title" filename parsing.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner constructs a Scanner. A nil logger disables logging.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logging.NewComponentLogger(logger, "scanner")}
}

// Scan walks root recursively and returns tracks sorted by path. Files whose
// metadata cannot be read fall back to filename parsing; files that cannot be
// opened at all are skipped and logged, never aborting the scan.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Track, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat music directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("music directory %q is not a directory", root)
	}

	var tracks []Track
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if entry != nil && entry.IsDir() {
				s.logger.Warn("skipping unreadable directory", logging.String("path", path), logging.Error(walkErr))
				return fs.SkipDir
			}
			s.logger.Warn("skipping unreadable entry", logging.String("path", path), logging.Error(walkErr))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			return nil
		}
		track, ok := s.readTrack(path)
		if !ok {
			return nil
		}
		tracks = append(tracks, track)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Path < tracks[j].Path })
	return tracks, nil
}

func (s *Scanner) readTrack(path string) (Track, bool) {
	track := Track{Path: path}

	file, err := os.Open(path)
	if err != nil {
		s.logger.Warn("skipping unreadable file", logging.String("path", path), logging.Error(err))
		return Track{}, false
	}
	defer file.Close()

	if meta, err := tag.ReadFrom(file); err == nil {
		track.Title = strings.TrimSpace(meta.Title())
		track.Artist = strings.TrimSpace(meta.Artist())
		track.Album = strings.TrimSpace(meta.Album())
	} else {
		s.logger.Debug("no readable tags, using filename", logging.String("path", path), logging.Error(err))
	}

	if track.Title == "" || track.Artist == "" {
		artist, title := parseFileName(path)
		if track.Title == "" {
			track.Title = title
		}
		if track.Artist == "" {
			track.Artist = artist
		}
	}

	if track.Title == "" {
		s.logger.Warn("skipping file without title", logging.String("path", path))
		return Track{}, false
	}
	return track, true
}

// parseFileName recovers artist and title from an "Artist - Title.ext" stem.
// Without a separator the whole stem becomes the title.
func parseFileName(path string) (artist, title string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if idx := strings.Index(stem, " - "); idx >= 0 {
		return strings.TrimSpace(stem[:idx]), strings.TrimSpace(stem[idx+3:])
	}
	return "", strings.TrimSpace(stem)
}
