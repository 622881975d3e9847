package beatmap_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"beatmatcher/internal/beatmap"
	"beatmatcher/internal/services"
	"beatmatcher/internal/testsupport"
)

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.zip")
	testsupport.BuildArchive(t, path, files)
	return path
}

func notesJSON(beats ...float64) string {
	out := `{"_notes":[`
	for i, beat := range beats {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"_time":%v,"_type":%d}`, beat, i%2)
	}
	return out + `]}`
}

const infoTwoDifficulties = `{
	"_songName": "One More Time",
	"_beatsPerMinute": 120,
	"_difficultyBeatmapSets": [{
		"_beatmapCharacteristicName": "Standard",
		"_difficultyBeatmaps": [
			{"_difficulty": "Easy", "_difficultyRank": 1, "_beatmapFilename": "Easy.dat"},
			{"_difficulty": "Expert", "_difficultyRank": 7, "_beatmapFilename": "Expert.dat"}
		]
	}]
}`

func TestAnalyzeArchiveComputesDensity(t *testing.T) {
	// At 120 BPM one beat is half a second. Easy spans beats 0..60
	// (30 seconds) with 4 notes; Expert packs 120 notes into the same
	// span.
	easyBeats := []float64{0, 20, 40, 60}
	expertBeats := make([]float64, 120)
	for i := range expertBeats {
		expertBeats[i] = float64(i) * 0.5
	}

	path := writeArchive(t, map[string]string{
		"Info.dat":   infoTwoDifficulties,
		"Easy.dat":   notesJSON(easyBeats...),
		"Expert.dat": notesJSON(expertBeats...),
	})

	analysis, err := beatmap.AnalyzeArchive(path)
	if err != nil {
		t.Fatalf("AnalyzeArchive: %v", err)
	}
	if analysis.SongName != "One More Time" || analysis.BPM != 120 {
		t.Fatalf("header = %q/%v", analysis.SongName, analysis.BPM)
	}
	if len(analysis.Difficulties) != 2 {
		t.Fatalf("difficulties = %d, want 2", len(analysis.Difficulties))
	}

	hardest := analysis.Hardest()
	if hardest.Difficulty != "Expert" {
		t.Fatalf("Hardest = %q, want Expert", hardest.Difficulty)
	}
	// 120 notes over beats 0..59.5 at 120 BPM is 29.75 seconds.
	if hardest.NotesPerSecond < 4.0 || hardest.NotesPerSecond > 4.1 {
		t.Fatalf("Expert NPS = %v, want ~4.03", hardest.NotesPerSecond)
	}
	// Notes land every quarter second, so a one second window holds 5.
	if hardest.PeakNPS != 5 {
		t.Fatalf("Expert peak = %v, want 5", hardest.PeakNPS)
	}

	easy := analysis.Difficulties[0]
	if easy.Difficulty != "Easy" {
		t.Fatalf("first difficulty = %q", easy.Difficulty)
	}
	// 4 notes over 30 seconds.
	if easy.NotesPerSecond < 0.13 || easy.NotesPerSecond > 0.14 {
		t.Fatalf("Easy NPS = %v, want ~0.133", easy.NotesPerSecond)
	}
}

func TestAnalyzeArchiveBombsExcluded(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"Info.dat": `{"_songName":"x","_beatsPerMinute":60,"_difficultyBeatmapSets":[{"_beatmapCharacteristicName":"Standard","_difficultyBeatmaps":[{"_difficulty":"Easy","_difficultyRank":1,"_beatmapFilename":"Easy.dat"}]}]}`,
		"Easy.dat": `{"_notes":[{"_time":0,"_type":0},{"_time":5,"_type":3},{"_time":10,"_type":1}]}`,
	})

	analysis, err := beatmap.AnalyzeArchive(path)
	if err != nil {
		t.Fatalf("AnalyzeArchive: %v", err)
	}
	if got := analysis.Difficulties[0].NoteCount; got != 2 {
		t.Fatalf("NoteCount = %d, want 2 with bomb excluded", got)
	}
}

func TestAnalyzeArchiveNestedDirectory(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"song_folder/info.dat": `{"_songName":"x","_beatsPerMinute":60,"_difficultyBeatmapSets":[{"_beatmapCharacteristicName":"Standard","_difficultyBeatmaps":[{"_difficulty":"Easy","_difficultyRank":1,"_beatmapFilename":"Easy.dat"}]}]}`,
		"song_folder/Easy.dat": notesJSON(0, 30, 60),
	})

	analysis, err := beatmap.AnalyzeArchive(path)
	if err != nil {
		t.Fatalf("AnalyzeArchive: %v", err)
	}
	if len(analysis.Difficulties) != 1 {
		t.Fatalf("difficulties = %d, want 1", len(analysis.Difficulties))
	}
}

func TestAnalyzeArchiveShortMapDurationFloor(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"Info.dat": `{"_songName":"x","_beatsPerMinute":120,"_difficultyBeatmapSets":[{"_beatmapCharacteristicName":"Standard","_difficultyBeatmaps":[{"_difficulty":"Easy","_difficultyRank":1,"_beatmapFilename":"Easy.dat"}]}]}`,
		"Easy.dat": `{"_notes":[{"_time":0,"_type":0},{"_time":0.1,"_type":1}]}`,
	})

	analysis, err := beatmap.AnalyzeArchive(path)
	if err != nil {
		t.Fatalf("AnalyzeArchive: %v", err)
	}
	if got := analysis.Difficulties[0].NotesPerSecond; got != 2 {
		t.Fatalf("NPS = %v, want 2 with one second floor", got)
	}
}

func TestAnalyzeArchiveMissingInfo(t *testing.T) {
	path := writeArchive(t, map[string]string{"readme.txt": "no beatmap here"})
	_, err := beatmap.AnalyzeArchive(path)
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestAnalyzeArchiveInvalidBPM(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"Info.dat": `{"_songName":"x","_beatsPerMinute":0,"_difficultyBeatmapSets":[]}`,
	})
	_, err := beatmap.AnalyzeArchive(path)
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestAnalyzeArchiveCorruptDifficultySkipped(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"Info.dat": `{"_songName":"x","_beatsPerMinute":60,"_difficultyBeatmapSets":[{"_beatmapCharacteristicName":"Standard","_difficultyBeatmaps":[
			{"_difficulty":"Easy","_difficultyRank":1,"_beatmapFilename":"Easy.dat"},
			{"_difficulty":"Hard","_difficultyRank":5,"_beatmapFilename":"Hard.dat"}
		]}]}`,
		"Easy.dat": notesJSON(0, 30),
		"Hard.dat": "{corrupt",
	})

	analysis, err := beatmap.AnalyzeArchive(path)
	if err != nil {
		t.Fatalf("AnalyzeArchive: %v", err)
	}
	if len(analysis.Difficulties) != 1 || analysis.Difficulties[0].Difficulty != "Easy" {
		t.Fatalf("difficulties = %+v, want only Easy", analysis.Difficulties)
	}
}

func TestAnalyzeArchiveNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	testsupport.WriteFile(t, path, []byte("not a zip"))
	_, err := beatmap.AnalyzeArchive(path)
	if !errors.Is(err, services.ErrUnreadable) {
		t.Fatalf("err = %v, want ErrUnreadable", err)
	}
}
