package beatsaver

import "strings"

// BuildQueries produces the ordered search strings for a track: combined
// "artist title" first, then title only, then artist only. Blank components
// are skipped and duplicates collapse, so a track with no usable metadata
// yields an empty sequence.
func BuildQueries(artist, title string) []string {
	artist = strings.Join(strings.Fields(artist), " ")
	title = strings.Join(strings.Fields(title), " ")

	candidates := make([]string, 0, 3)
	if artist != "" && title != "" {
		candidates = append(candidates, artist+" "+title)
	}
	if title != "" {
		candidates = append(candidates, title)
	}
	if artist != "" {
		candidates = append(candidates, artist)
	}

	seen := make(map[string]struct{}, len(candidates))
	queries := candidates[:0]
	for _, q := range candidates {
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
	}
	return queries
}
