package audio

import "strings"

// Track is one local audio file with whatever metadata could be recovered.
type Track struct {
	Path   string
	Title  string
	Artist string
	Album  string
}

// Label returns the "artist - title" form used in logs.
func (t Track) Label() string {
	artist := strings.TrimSpace(t.Artist)
	title := strings.TrimSpace(t.Title)
	switch {
	case artist == "" && title == "":
		return t.Path
	case artist == "":
		return title
	default:
		return artist + " - " + title
	}
}
