// Package textutil provides filename sanitization helpers shared by the
// downloader and organizer.
//
// Sanitization preserves Unicode letters so non-Latin song titles keep their
// names on disk; only characters that are unsafe in common filesystems are
// replaced or removed.
package textutil
