// Package ranking scores catalog candidates against local track metadata
// and decides which map, if any, each track should download.
package ranking
