// Package matching normalizes track and candidate names and scores their
// similarity.
//
// Normalization is aggressive on purpose: catalog uploads rarely reproduce a
// track's tags exactly, so case, diacritics, punctuation, featured-artist
// credits, and version suffixes ("(Remix)", "- Remastered 2011") are all
// stripped before comparison. Similarity combines a token-set measure with an
// edit-distance ratio and keeps whichever is higher, so both word reordering
// and small misspellings stay matchable.
package matching
