// Package track provides the Track and Playlist domain entities.
package track

import (
	"github.com/mitchellh/mapstructure"
)

// Track represents a single playable entry in a playlist.
// URL is the only field the player itself interprets; everything else is
// carried for the benefit of the embedding application.
type Track struct {
	URL    string         // Media source URL (file path, http(s) URL, or engine URI)
	Title  string         // Track title (optional)
	Artist string         // Artist name (optional)
	Extra  map[string]any // Caller-defined fields, passed through untouched
}

// DecodeExtra decodes the caller-defined extra fields into out.
// out must be a pointer to a struct or map.
func (t *Track) DecodeExtra(out any) error {
	return mapstructure.Decode(t.Extra, out)
}

// DisplayName returns a human-readable name for the track.
// Falls back to the URL when no title is set.
func (t *Track) DisplayName() string {
	if t.Title == "" {
		return t.URL
	}
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
