// Package config loads, normalizes, and validates beatmatcher configuration.
//
// Configuration is TOML. Load resolves the file (explicit flag path, then
// ~/.config/beatmatcher/config.toml, then a project-local beatmatcher.toml),
// overlays it onto repository defaults, expands ~ in every path field, and
// validates the result. A missing file is not an error; defaults apply.
package config
