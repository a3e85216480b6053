// Package playlistfile loads playlists from YAML files and local
// directories.
package playlistfile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// entry is the recognized shape of a playlist file record. Unknown keys are
// preserved as opaque extra fields on the track.
type entry struct {
	URL    string `mapstructure:"url"`
	Title  string `mapstructure:"title"`
	Artist string `mapstructure:"artist"`
}

// FromFile reads a YAML playlist: a list of records each minimally carrying
// a url. Content validation (non-empty list, url presence) happens when the
// result is loaded into the player.
func FromFile(path string) ([]track.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist file")
	}

	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse playlist file")
	}

	tracks := make([]track.Track, 0, len(raw))
	for i, record := range raw {
		var e entry
		var md mapstructure.Metadata
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:   &e,
			Metadata: &md,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to build decoder")
		}
		if err := dec.Decode(record); err != nil {
			return nil, errors.Wrapf(err, "playlist entry %d", i)
		}

		var extra map[string]any
		if len(md.Unused) > 0 {
			extra = make(map[string]any, len(md.Unused))
			for _, k := range md.Unused {
				extra[k] = record[k]
			}
		}

		tracks = append(tracks, track.Track{
			URL:    e.URL,
			Title:  e.Title,
			Artist: e.Artist,
			Extra:  extra,
		})
	}

	return tracks, nil
}

// audioExtensions are the file types picked up by FromDirectory.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".wav":  true,
}

// FromDirectory scans a directory (non-recursive) for audio files, in name
// order, and reads title and artist from their tags. Files whose tags
// cannot be read fall back to the file name as title.
func FromDirectory(dir string) ([]track.Track, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read directory")
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if audioExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	tracks := make([]track.Track, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		tracks = append(tracks, trackFromFile(path))
	}

	return tracks, nil
}

func trackFromFile(path string) track.Track {
	t := track.Track{
		URL:   path,
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	f, err := os.Open(path)
	if err != nil {
		zlog.Warn().Msgf("playlistfile: open %s: %v", path, err)
		return t
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Untagged files are fine; keep the file name fallback.
		zlog.Debug().Msgf("playlistfile: no tags in %s: %v", path, err)
		return t
	}

	if m.Title() != "" {
		t.Title = m.Title()
	}
	t.Artist = m.Artist()
	if m.Album() != "" {
		t.Extra = map[string]any{"album": m.Album()}
	}
	return t
}
