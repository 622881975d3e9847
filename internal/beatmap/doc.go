// Package beatmap reads downloaded beatmap archives and derives note
// density statistics used to sort maps into difficulty buckets.
package beatmap
