package track

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Errors
var (
	ErrEmptyPlaylist = errors.New("playlist must contain at least one track")
	ErrMissingURL    = errors.New("track is missing a url")
)

// Playlist is a non-empty ordered sequence of tracks.
// Once constructed it is immutable; replacing a playlist means building a
// new one.
type Playlist struct {
	ID     string  // Unique playlist ID, assigned at construction
	Tracks []Track // Tracks in playback order, length >= 1
}

// NewPlaylist validates the given tracks and builds a playlist from them.
// Returns ErrEmptyPlaylist when tracks is empty and ErrMissingURL (wrapped
// with the offending index) when any track has a blank URL.
func NewPlaylist(tracks []Track) (*Playlist, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyPlaylist
	}
	for i, t := range tracks {
		if strings.TrimSpace(t.URL) == "" {
			return nil, errors.Wrapf(ErrMissingURL, "track %d", i)
		}
	}

	copied := make([]Track, len(tracks))
	copy(copied, tracks)

	return &Playlist{
		ID:     uuid.NewString(),
		Tracks: copied,
	}, nil
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

// Track returns the track at index i. The caller must pass a valid index.
func (p *Playlist) Track(i int) Track {
	return p.Tracks[i]
}

// URLs returns all track URLs in playback order.
func (p *Playlist) URLs() []string {
	urls := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		urls[i] = t.URL
	}
	return urls
}
