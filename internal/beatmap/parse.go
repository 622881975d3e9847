package beatmap

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"beatmatcher/internal/services"
)

// peakWindowSeconds is the sliding window width for peak density.
const peakWindowSeconds = 1.0

// minDurationSeconds guards division when a map's notes all land near
// beat zero.
const minDurationSeconds = 1.0

// AnalyzeArchive opens a beatmap zip and computes note density for every
// difficulty it can read. Archives missing Info.dat, carrying an invalid
// BPM, or yielding no parseable difficulty produce an ErrParse failure;
// archives that cannot be opened at all produce ErrUnreadable.
func AnalyzeArchive(archivePath string) (*Analysis, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadable, "analyzing", "open archive",
			fmt.Sprintf("cannot open %s", archivePath), err)
	}
	defer reader.Close()

	infoFile := findFile(&reader.Reader, "", "Info.dat")
	if infoFile == nil {
		return nil, services.Wrap(services.ErrParse, "analyzing", "locate info",
			"archive has no Info.dat", nil)
	}

	var info Info
	if err := decodeZipJSON(infoFile, &info); err != nil {
		return nil, services.Wrap(services.ErrParse, "analyzing", "decode info",
			"Info.dat is not valid JSON", err)
	}
	if info.BPM <= 0 {
		return nil, services.Wrap(services.ErrParse, "analyzing", "decode info",
			fmt.Sprintf("invalid beats per minute %v", info.BPM), nil)
	}

	baseDir := path.Dir(infoFile.Name)
	if baseDir == "." {
		baseDir = ""
	}

	analysis := &Analysis{SongName: strings.TrimSpace(info.SongName), BPM: info.BPM}
	for _, set := range info.Sets {
		for _, ref := range set.Beatmaps {
			file := findFile(&reader.Reader, baseDir, ref.Filename)
			if file == nil {
				continue
			}
			var diff difficultyFile
			if err := decodeZipJSON(file, &diff); err != nil {
				continue
			}
			stats := computeStats(diff.Notes, info.BPM)
			stats.Characteristic = set.Characteristic
			stats.Difficulty = ref.Difficulty
			stats.Rank = ref.Rank
			analysis.Difficulties = append(analysis.Difficulties, stats)
		}
	}

	if len(analysis.Difficulties) == 0 {
		return nil, services.Wrap(services.ErrParse, "analyzing", "decode difficulties",
			"archive has no parseable difficulty files", nil)
	}
	return analysis, nil
}

// findFile locates a zip entry by case-insensitive base name, preferring
// entries under dir when given.
func findFile(reader *zip.Reader, dir, name string) *zip.File {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	wanted := path.Join(dir, name)
	var fallback *zip.File
	for _, file := range reader.File {
		if strings.EqualFold(file.Name, wanted) {
			return file
		}
		if fallback == nil && strings.EqualFold(path.Base(file.Name), name) {
			fallback = file
		}
	}
	return fallback
}

func decodeZipJSON(file *zip.File, v any) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

// computeStats derives sustained and peak note density for one
// difficulty. Beats convert to seconds through the song BPM; bombs and
// other non-note objects are excluded.
func computeStats(notes []Note, bpm float64) DifficultyStats {
	times := make([]float64, 0, len(notes))
	for _, note := range notes {
		if note.countsTowardDensity() {
			times = append(times, note.Time*60/bpm)
		}
	}
	if len(times) == 0 {
		return DifficultyStats{}
	}
	sort.Float64s(times)

	duration := times[len(times)-1]
	if duration < minDurationSeconds {
		duration = minDurationSeconds
	}

	peak := 0
	start := 0
	for end := range times {
		for times[end]-times[start] > peakWindowSeconds {
			start++
		}
		if window := end - start + 1; window > peak {
			peak = window
		}
	}

	return DifficultyStats{
		NoteCount:       len(times),
		DurationSeconds: duration,
		NotesPerSecond:  float64(len(times)) / duration,
		PeakNPS:         float64(peak) / peakWindowSeconds,
	}
}
