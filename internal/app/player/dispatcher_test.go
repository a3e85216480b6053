package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/tapedeck/internal/domain/track"
)

func TestDispatcher_TrackChangeDedup(t *testing.T) {
	d := newDispatcher()

	var delivered []int
	d.onTrackChange = func(index int, _ track.Track) {
		delivered = append(delivered, index)
	}

	d.fireTrackChange(0, track.Track{URL: "a"})
	d.fireTrackChange(0, track.Track{URL: "a"}) // duplicate, dropped
	d.fireTrackChange(1, track.Track{URL: "b"})
	d.fireTrackChange(1, track.Track{URL: "b"}) // duplicate, dropped
	d.fireTrackChange(0, track.Track{URL: "a"}) // distinct again

	assert.Equal(t, []int{0, 1, 0}, delivered)
}

func TestDispatcher_ResetTrackChange(t *testing.T) {
	d := newDispatcher()

	var delivered []int
	d.onTrackChange = func(index int, _ track.Track) {
		delivered = append(delivered, index)
	}

	d.fireTrackChange(0, track.Track{URL: "a"})
	d.resetTrackChange()
	// Same index fires again after a reset (fresh playlist).
	d.fireTrackChange(0, track.Track{URL: "x"})

	assert.Equal(t, []int{0, 0}, delivered)
}

func TestDispatcher_PanicIsolation(t *testing.T) {
	d := newDispatcher()

	d.onPlay = func() { panic("handler bug") }
	assert.NotPanics(t, func() { d.firePlay() })

	d.onTrackChange = func(int, track.Track) { panic("handler bug") }
	assert.NotPanics(t, func() { d.fireTrackChange(3, track.Track{}) })

	// A panicking track-change handler still counts as delivered.
	called := false
	d.onTrackChange = func(int, track.Track) { called = true }
	d.fireTrackChange(3, track.Track{})
	assert.False(t, called)
}

func TestDispatcher_NilHandlers(t *testing.T) {
	d := newDispatcher()

	assert.NotPanics(t, func() {
		d.firePlay()
		d.firePause()
		d.fireStop()
		d.fireTrackChange(0, track.Track{})
	})
}

func TestDispatcher_RegistrationReplaces(t *testing.T) {
	d := newDispatcher()

	first, second := 0, 0
	d.onPause = func() { first++ }
	d.onPause = func() { second++ }

	d.firePause()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}
