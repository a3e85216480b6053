// Package mpv provides a playback engine backed by libmpv.
package mpv

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	mpv "github.com/supersonic-app/go-mpv"
)

// Engine drives a libmpv instance. It satisfies the player's Engine and
// EndedNotifier interfaces.
//
// mpv runs with keep-open enabled so that reaching the end of a file parks
// the engine with eof-reached set instead of unloading the file; the
// reconciler reads that flag to drive track advancement itself.
type Engine struct {
	instance *mpv.Mpv
	events   chan *mpv.Event
	quit     chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	source  string
	endedFn func()
}

// NewEngine creates and initializes the mpv instance and starts its event
// loop.
func NewEngine() (*Engine, error) {
	instance := mpv.Create()

	if err := instance.SetOptionString("audio-display", "no"); err != nil {
		instance.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to set mpv option")
	}
	if err := instance.SetOptionString("video", "no"); err != nil {
		instance.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to set mpv option")
	}
	if err := instance.SetOptionString("keep-open", "yes"); err != nil {
		instance.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to set mpv option")
	}

	if err := instance.Initialize(); err != nil {
		instance.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to initialize mpv")
	}

	e := &Engine{
		instance: instance,
		events:   make(chan *mpv.Event),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	// WaitEvent must not be called on a destroyed instance, so the poller
	// signals done before Close is allowed to tear mpv down. The one second
	// timeout bounds how long Close waits for the poller to notice quit.
	go func() {
		defer close(e.done)
		for {
			select {
			case <-e.quit:
				return
			default:
			}
			evt := e.instance.WaitEvent(1)
			select {
			case e.events <- evt:
			case <-e.quit:
				return
			}
		}
	}()
	go e.eventLoop()

	return e, nil
}

// Close shuts down the event loop and destroys the mpv instance. It only
// returns once the event poller has stopped touching the instance.
func (e *Engine) Close() {
	close(e.quit)
	<-e.done
	e.instance.TerminateDestroy()
}

// NotifyEnded registers the end-of-track callback.
func (e *Engine) NotifyEnded(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endedFn = fn
}

// AssignSource loads url into mpv without starting playback.
func (e *Engine) AssignSource(url string) {
	e.mu.Lock()
	e.source = url
	e.mu.Unlock()

	// Pausing first keeps loadfile from starting playback on its own.
	if err := e.instance.SetProperty("pause", mpv.FORMAT_FLAG, true); err != nil {
		zlog.Error().Msgf("mpv: set pause before load: %v", err)
	}
	if err := e.instance.Command([]string{"loadfile", url}); err != nil {
		zlog.Error().Msgf("mpv: loadfile %s: %v", url, err)
	}
}

// Play starts or resumes playback of the assigned source.
func (e *Engine) Play(_ context.Context) error {
	e.mu.Lock()
	source := e.source
	e.mu.Unlock()

	if source == "" {
		return errors.New("no source assigned")
	}

	// If mpv dropped into idle (e.g. the previous load failed), retry the
	// load before unpausing.
	if idle, err := e.getPropertyBool("idle-active"); err == nil && idle {
		if err := e.instance.Command([]string{"loadfile", source}); err != nil {
			return errors.Wrapf(err, "failed to load %s", source)
		}
	}

	if err := e.instance.SetProperty("pause", mpv.FORMAT_FLAG, false); err != nil {
		return errors.Wrap(err, "failed to unpause")
	}
	return nil
}

// Pause pauses playback.
func (e *Engine) Pause() {
	if err := e.instance.SetProperty("pause", mpv.FORMAT_FLAG, true); err != nil {
		zlog.Error().Msgf("mpv: pause: %v", err)
	}
}

// Seek moves to an absolute position in seconds.
func (e *Engine) Seek(seconds float64) {
	if err := e.instance.Command([]string{"seek", fmt.Sprintf("%f", seconds), "absolute"}); err != nil {
		zlog.Error().Msgf("mpv: seek: %v", err)
	}
}

// Position returns the playback position in seconds.
func (e *Engine) Position() float64 {
	pos, err := e.getPropertyDouble("time-pos")
	if err != nil {
		return 0
	}
	return pos
}

// Duration returns the duration of the loaded source, or NaN before the
// metadata is known.
func (e *Engine) Duration() float64 {
	dur, err := e.getPropertyDouble("duration")
	if err != nil {
		return math.NaN()
	}
	return dur
}

// Paused reports whether mpv is paused. An idle instance (nothing loaded,
// or nothing assigned yet) reads as paused even though mpv's pause property
// defaults to false; otherwise the reconciler would mistake a freshly
// created engine for an out-of-band resume. Errors read as paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	hasSource := e.source != ""
	e.mu.Unlock()

	idle, err := e.getPropertyBool("idle-active")
	if err != nil {
		idle = false
	}
	paused, err := e.getPropertyBool("pause")
	if err != nil {
		paused = true
	}
	return reportedPaused(hasSource, idle, paused)
}

// reportedPaused decides the Paused answer from the raw property reads.
// Nothing loaded means nothing playing, regardless of the pause property.
func reportedPaused(hasSource, idle, paused bool) bool {
	if !hasSource || idle {
		return true
	}
	return paused
}

// Ended reports whether the loaded source has played to its end.
func (e *Engine) Ended() bool {
	eof, err := e.getPropertyBool("eof-reached")
	if err != nil {
		return false
	}
	return eof
}

func (e *Engine) eventLoop() {
	if err := e.instance.ObserveProperty(0, "eof-reached", mpv.FORMAT_FLAG); err != nil {
		zlog.Error().Msgf("mpv: observe eof-reached: %v", err)
	}

	for {
		var evt *mpv.Event
		select {
		case <-e.quit:
			return
		case evt = <-e.events:
		}
		if evt == nil {
			continue
		}
		switch evt.Event_Id {
		case mpv.EVENT_PROPERTY_CHANGE:
			if e.Ended() {
				e.fireEnded()
			}
		case mpv.EVENT_END_FILE:
			e.fireEnded()
		case mpv.EVENT_IDLE, mpv.EVENT_NONE:
			continue
		}
	}
}

func (e *Engine) fireEnded() {
	e.mu.Lock()
	fn := e.endedFn
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (e *Engine) getPropertyBool(name string) (bool, error) {
	value, err := e.instance.GetProperty(name, mpv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, errors.New("nil value")
	}
	return value.(bool), nil
}

func (e *Engine) getPropertyDouble(name string) (float64, error) {
	value, err := e.instance.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, errors.New("nil value")
	}
	return value.(float64), nil
}
