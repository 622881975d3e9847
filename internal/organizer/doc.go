// Package organizer moves staged beatmap archives into the output
// library, one folder per difficulty bucket.
package organizer
