package beatsaver

import (
	"strings"
	"time"
)

// MapDetail is one catalog record as returned by search and detail endpoints.
type MapDetail struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Uploader Uploader     `json:"uploader"`
	Metadata MapMetadata  `json:"metadata"`
	Stats    MapStats     `json:"stats"`
	Uploaded time.Time    `json:"uploaded"`
	Versions []MapVersion `json:"versions"`
}

// Uploader identifies the account that published a map.
type Uploader struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MapMetadata carries the song fields embedded in a catalog record.
type MapMetadata struct {
	SongName        string  `json:"songName"`
	SongSubName     string  `json:"songSubName"`
	SongAuthorName  string  `json:"songAuthorName"`
	LevelAuthorName string  `json:"levelAuthorName"`
	BPM             float64 `json:"bpm"`
	Duration        int     `json:"duration"`
}

// MapStats carries community statistics. Score is the catalog's own rating
// in [0, 1].
type MapStats struct {
	Downloads int     `json:"downloads"`
	Plays     int     `json:"plays"`
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	Score     float64 `json:"score"`
}

// MapVersion is one published revision of a map.
type MapVersion struct {
	Hash        string    `json:"hash"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"downloadURL"`
}

// searchResponse models the paginated search payload; records live under docs.
type searchResponse struct {
	Docs []MapDetail `json:"docs"`
}

// Valid reports whether a record carries the fields the pipeline needs.
// Malformed records are dropped rather than failing the whole search.
func (m MapDetail) Valid() bool {
	if strings.TrimSpace(m.ID) == "" {
		return false
	}
	if strings.TrimSpace(m.Name) == "" && strings.TrimSpace(m.Metadata.SongName) == "" {
		return false
	}
	return true
}

// SongName returns the best available song title for matching.
func (m MapDetail) SongName() string {
	if name := strings.TrimSpace(m.Metadata.SongName); name != "" {
		return name
	}
	return strings.TrimSpace(m.Name)
}

// SongAuthor returns the song artist credited on the map, which may be empty.
func (m MapDetail) SongAuthor() string {
	return strings.TrimSpace(m.Metadata.SongAuthorName)
}

// LatestVersion returns the newest published revision, or nil when the
// record carries none.
func (m MapDetail) LatestVersion() *MapVersion {
	var latest *MapVersion
	for i := range m.Versions {
		v := &m.Versions[i]
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			latest = v
		}
	}
	return latest
}

// UpvoteRatio derives the vote ratio with a neutral 0.5 prior for unvoted
// maps and confidence damping below ten votes, so a map with two upvotes
// does not outrank one with two hundred.
func (m MapStats) UpvoteRatio() float64 {
	total := m.Upvotes + m.Downvotes
	if total == 0 {
		return 0.5
	}
	ratio := float64(m.Upvotes) / float64(total)
	if total < 10 {
		confidence := float64(total) / 10.0
		return 0.5 + (ratio-0.5)*confidence
	}
	return ratio
}

// Candidate pairs a catalog record with the query that produced it. Order
// preserves earliest-seen position for deterministic tie-breaking.
type Candidate struct {
	Map   MapDetail `json:"map"`
	Query string    `json:"query"`
	Order int       `json:"order"`
}
