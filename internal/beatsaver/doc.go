// Package beatsaver talks to the BeatSaver beatmap catalog.
//
// It contains the HTTP client (search, map detail, archive download), the
// query builder that turns track metadata into search strings, and the two
// pipeline stages backed by the client: candidate search and archive
// download.
package beatsaver
