// Package spotify provides a playback engine backed by Spotify Connect.
//
// Spotify playback is the canonical externally-mutable engine: any other
// client on the same account, including hardware remotes, can pause, resume
// or reposition it at any time. The adapter therefore only ever reports a
// recently polled snapshot and leaves divergence correction to the
// reconciler.
package spotify

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Config represents Spotify engine configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	DeviceID     string // Target device; empty means the active device
}

// snapshot is a cached view of the remote player state.
type snapshot struct {
	playing     bool
	progressSec float64
	durationSec float64
	fetchedAt   time.Time
	valid       bool
}

// snapshotTTL bounds how stale a reported engine state may be. The
// reconciler re-reads state every tick; without a small cache every tick
// would cost several API round trips.
const snapshotTTL = time.Second

// Engine drives Spotify Connect playback. It satisfies the player's Engine
// interface. There is no push notification channel from Spotify, so it does
// not implement EndedNotifier; the reconciler's tick carries end-of-track
// detection.
type Engine struct {
	client     *spotify.Client
	ctx        context.Context
	deviceID   *spotify.ID
	maxRetries int
	retryDelay time.Duration

	mu            sync.Mutex
	uri           spotify.URI
	started       bool // a play has succeeded since the last source assignment
	expectPlaying bool // the state the last successful command asked for
	snap          snapshot
}

// NewEngine creates a Spotify engine authenticated from a refresh token.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
	)

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	httpClient := auth.Client(ctx, token)

	e := &Engine{
		client:     spotify.New(httpClient),
		ctx:        ctx,
		maxRetries: 3,
		retryDelay: time.Second,
	}
	if cfg.DeviceID != "" {
		id := spotify.ID(cfg.DeviceID)
		e.deviceID = &id
	}
	return e, nil
}

// AssignSource records the track to play. Accepts spotify: URIs,
// open.spotify.com track URLs, and bare track IDs.
func (e *Engine) AssignSource(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uri = trackURI(url)
	e.started = false
	e.expectPlaying = false
	e.snap.valid = false
}

// Play starts the assigned track (or resumes it after a pause) on the
// configured device.
func (e *Engine) Play(ctx context.Context) error {
	e.mu.Lock()
	uri := e.uri
	started := e.started
	e.mu.Unlock()

	if uri == "" {
		return errors.New("no source assigned")
	}

	opts := &spotify.PlayOptions{DeviceID: e.deviceID}
	if !started {
		opts.URIs = []spotify.URI{uri}
	}

	err := e.retry(func() error {
		return e.client.PlayOpt(ctx, opts)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to play %s", uri)
	}

	e.mu.Lock()
	e.started = true
	e.expectPlaying = true
	e.snap.valid = false
	e.mu.Unlock()
	return nil
}

// Pause pauses playback.
func (e *Engine) Pause() {
	err := e.retry(func() error {
		return e.client.PauseOpt(e.ctx, &spotify.PlayOptions{DeviceID: e.deviceID})
	})
	if err != nil {
		zlog.Error().Msgf("spotify: pause: %v", err)
	}
	e.mu.Lock()
	e.expectPlaying = false
	e.snap.valid = false
	e.mu.Unlock()
}

// Seek moves to an absolute position in seconds.
func (e *Engine) Seek(seconds float64) {
	ms := int(seconds * 1000)
	err := e.retry(func() error {
		return e.client.SeekOpt(e.ctx, ms, &spotify.PlayOptions{DeviceID: e.deviceID})
	})
	if err != nil {
		zlog.Error().Msgf("spotify: seek: %v", err)
	}
	e.invalidate()
}

// Position returns the playback position in seconds.
func (e *Engine) Position() float64 {
	return e.state().progressSec
}

// Duration returns the current track's duration in seconds, or NaN when no
// track is reported.
func (e *Engine) Duration() float64 {
	s := e.state()
	if s.durationSec <= 0 {
		return math.NaN()
	}
	return s.durationSec
}

// Paused reports whether remote playback is paused.
func (e *Engine) Paused() bool {
	return !e.state().playing
}

// Ended reports whether the assigned track has played to its end. Spotify
// does not expose an end-of-track flag; a track that was started here and
// is now stopped at position zero has run out. Only a real state read can
// say so: an assumed snapshot never counts as ended.
func (e *Engine) Ended() bool {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return false
	}

	s := e.state()
	return s.valid && !s.playing && s.progressSec == 0
}

func (e *Engine) invalidate() {
	e.mu.Lock()
	e.snap.valid = false
	e.mu.Unlock()
}

// state returns the cached snapshot, refreshing it from the API when it is
// older than snapshotTTL.
func (e *Engine) state() snapshot {
	e.mu.Lock()
	if e.snap.valid && time.Since(e.snap.fetchedAt) < snapshotTTL {
		s := e.snap
		e.mu.Unlock()
		return s
	}
	e.mu.Unlock()

	ps, err := e.client.PlayerState(e.ctx)
	if err != nil {
		zlog.Error().Msgf("spotify: player state: %v", err)
		e.mu.Lock()
		defer e.mu.Unlock()
		return staleOrAssumed(e.snap, e.expectPlaying)
	}

	s := snapshot{
		playing:   ps.Playing,
		fetchedAt: time.Now(),
		valid:     true,
	}
	s.progressSec = float64(ps.Progress) / 1000
	if ps.Item != nil {
		s.durationSec = float64(ps.Item.Duration) / 1000
	}

	e.mu.Lock()
	e.snap = s
	e.mu.Unlock()
	return s
}

// staleOrAssumed picks the snapshot to report when a fresh fetch failed:
// the last good one if there is any, otherwise the state the last
// successful command asked for. A zero snapshot would read as a track
// stopped at position zero, turning a transient API failure into an
// end-of-track.
func staleOrAssumed(last snapshot, expectPlaying bool) snapshot {
	if last.valid {
		return last
	}
	return snapshot{playing: expectPlaying}
}

// retry runs fn up to maxRetries times with a fixed delay between attempts.
func (e *Engine) retry(fn func() error) error {
	var err error
	for i := 0; i < e.maxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < e.maxRetries-1 {
			time.Sleep(e.retryDelay)
		}
	}
	return err
}

// trackURI normalizes a source reference into a spotify track URI.
func trackURI(ref string) spotify.URI {
	ref = strings.TrimSpace(ref)

	if strings.HasPrefix(ref, "spotify:") {
		return spotify.URI(ref)
	}

	// https://open.spotify.com/track/<id>[?...]
	if strings.Contains(ref, "open.spotify.com/track/") {
		parts := strings.Split(ref, "/track/")
		id := parts[len(parts)-1]
		if i := strings.IndexAny(id, "?#"); i >= 0 {
			id = id[:i]
		}
		return spotify.URI("spotify:track:" + id)
	}

	// Bare track ID.
	return spotify.URI("spotify:track:" + ref)
}
