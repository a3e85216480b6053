package player

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// TrackChangeHandler receives the new current index and its track whenever
// the selection settles on a distinct track.
type TrackChangeHandler func(index int, t track.Track)

// dispatcher holds at most one handler per lifecycle event kind and invokes
// them with failure isolation: a panicking handler is logged and swallowed,
// never propagated to the caller of the triggering operation.
type dispatcher struct {
	onPlay        func()
	onPause       func()
	onStop        func()
	onTrackChange TrackChangeHandler

	// Last index delivered to onTrackChange, for deduplication. -1 means
	// none; reset on every playlist load so the first track of a fresh
	// playlist always fires even when its index matches the previous one.
	lastTrackIndex int
}

func newDispatcher() *dispatcher {
	return &dispatcher{lastTrackIndex: -1}
}

// resetTrackChange forgets the last delivered index.
func (d *dispatcher) resetTrackChange() {
	d.lastTrackIndex = -1
}

func (d *dispatcher) firePlay() {
	d.invoke("play", d.onPlay)
}

func (d *dispatcher) firePause() {
	d.invoke("pause", d.onPause)
}

func (d *dispatcher) fireStop() {
	d.invoke("stop", d.onStop)
}

// fireTrackChange notifies the track-change handler, deduplicated on the
// last delivered index: a repeat call for the same settled index is a no-op.
func (d *dispatcher) fireTrackChange(index int, t track.Track) {
	if index == d.lastTrackIndex {
		return
	}
	d.lastTrackIndex = index

	if d.onTrackChange == nil {
		return
	}
	h := d.onTrackChange
	d.invoke("track_change", func() { h(index, t) })
}

// invoke runs a handler with panic isolation.
func (d *dispatcher) invoke(event string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: %s handler panicked: %v", event, r)
		}
	}()
	fn()
}
