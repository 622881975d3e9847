// Package audio scans the local music library and extracts track metadata.
package audio
