package beatmap

// Info mirrors the fields of an archive's Info.dat that analysis needs.
type Info struct {
	SongName       string       `json:"_songName"`
	SongAuthorName string       `json:"_songAuthorName"`
	BPM            float64      `json:"_beatsPerMinute"`
	Sets           []BeatmapSet `json:"_difficultyBeatmapSets"`
}

// BeatmapSet groups the difficulty files for one play characteristic.
type BeatmapSet struct {
	Characteristic string       `json:"_beatmapCharacteristicName"`
	Beatmaps       []BeatmapRef `json:"_difficultyBeatmaps"`
}

// BeatmapRef points at one difficulty file within the archive.
type BeatmapRef struct {
	Difficulty string `json:"_difficulty"`
	Rank       int    `json:"_difficultyRank"`
	Filename   string `json:"_beatmapFilename"`
}

// difficultyFile is the payload of a single difficulty's beatmap file.
type difficultyFile struct {
	Notes []Note `json:"_notes"`
}

// Note is one map object. Type 0 and 1 are left and right hand notes;
// type 3 is a bomb and does not count toward density.
type Note struct {
	Time float64 `json:"_time"`
	Type int     `json:"_type"`
}

func (n Note) countsTowardDensity() bool {
	return n.Type == 0 || n.Type == 1
}

// DifficultyStats holds the derived note density for one difficulty.
type DifficultyStats struct {
	Characteristic  string
	Difficulty      string
	Rank            int
	NoteCount       int
	DurationSeconds float64
	NotesPerSecond  float64
	PeakNPS         float64
}

// Analysis is the result of scanning a whole archive.
type Analysis struct {
	SongName     string
	BPM          float64
	Difficulties []DifficultyStats
}

// Hardest returns the difficulty with the highest sustained note density,
// or nil when the archive yielded none.
func (a *Analysis) Hardest() *DifficultyStats {
	var hardest *DifficultyStats
	for i := range a.Difficulties {
		d := &a.Difficulties[i]
		if hardest == nil || d.NotesPerSecond > hardest.NotesPerSecond {
			hardest = d
		}
	}
	return hardest
}
