package player

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/app/status"
	"github.com/osa030/tapedeck/internal/domain/track"
)

// DefaultTickInterval is the reconcile interval used when the config does
// not specify one.
const DefaultTickInterval = 250 * time.Millisecond

// Config holds player configuration.
type Config struct {
	TickInterval time.Duration        // Interval of the reconcile tick
	Format       status.FormatOptions // Display-time rendering options
}

// Player reconciles declared playback intent with the actual state of a
// native engine. Every mutating operation updates intent and attempts to
// make the engine match; the periodic tick corrects divergence that happens
// without an explicit operation (external pause or resume, natural
// end-of-track).
//
// Lifecycle handlers and sinks are invoked synchronously from the operation
// that triggered them and must not call back into the Player.
type Player struct {
	mu     sync.Mutex
	engine Engine
	cfg    Config

	playlist *track.Playlist
	current  int
	playing  bool // declared intent: should be playing
	deferred deferredOps
	dispatch *dispatcher

	statusSink   StatusSink
	boundarySink BoundarySink

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a player driving the given engine and starts its reconcile
// tick. The tick runs until Close is called.
func New(engine Engine, cfg Config) *Player {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		engine:   engine,
		cfg:      cfg,
		current:  -1,
		dispatch: newDispatcher(),
		ctx:      ctx,
		cancel:   cancel,
	}

	// Engines that push an end-of-track notification get reconciled
	// eagerly; everyone else waits for the next tick.
	if n, ok := engine.(EndedNotifier); ok {
		n.NotifyEnded(p.reconcile)
	}

	go p.tickLoop()
	return p
}

// Close stops the reconcile tick. It does not touch the engine.
func (p *Player) Close() {
	p.cancel()
}

func (p *Player) tickLoop() {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.reconcile()
		}
	}
}

// OnPlay registers the play handler, replacing any previous one.
func (p *Player) OnPlay(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatch.onPlay = fn
}

// OnPause registers the pause handler, replacing any previous one.
func (p *Player) OnPause(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatch.onPause = fn
}

// OnStop registers the stop handler, replacing any previous one.
func (p *Player) OnStop(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatch.onStop = fn
}

// OnTrackChange registers the track-change handler, replacing any previous
// one. The handler is invoked exactly once per distinct track selection.
func (p *Player) OnTrackChange(fn TrackChangeHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatch.onTrackChange = fn
}

// SetStatusSink registers the optional status projection sink.
func (p *Player) SetStatusSink(s StatusSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusSink = s
}

// SetBoundarySink registers the optional boundary projection sink.
func (p *Player) SetBoundarySink(s BoundarySink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boundarySink = s
}

// Load validates tracks and replaces the current playlist. The new playlist
// starts at index 0 with no deferred operations; the first track's source is
// recorded for the next play rather than assigned immediately. If a load
// happens while playing, playback pauses first and resumes on the new
// playlist afterward. Validation failure leaves all prior state untouched.
func (p *Player) Load(tracks []track.Track) error {
	pl, err := track.NewPlaylist(tracks)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wasPlaying := p.playing
	if wasPlaying {
		p.pauseLocked()
	}

	p.playlist = pl
	p.current = 0
	p.deferred.clear()
	p.deferred.deferSource(pl.Track(0).URL)
	p.dispatch.resetTrackChange()

	zlog.Debug().Msgf("player: loaded playlist %s with %d tracks", pl.ID, pl.Len())

	p.publishPositionZeroLocked()
	p.publishBoundaryLocked()
	p.dispatch.fireTrackChange(0, pl.Track(0))

	if wasPlaying {
		p.playLocked()
	}
	return nil
}

// Play sets intent to playing and asks the engine to play, applying any
// deferred source and seek first. No-op before a playlist is loaded.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playLocked()
}

// Pause sets intent to paused and pauses the engine.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
}

// Stop pauses the engine, rewinds to position 0, and drops any deferred
// seek. Unlike Pause it never leaves a seek pending.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playlist == nil {
		return
	}
	p.playing = false
	p.engine.Pause()
	p.engine.Seek(0)
	p.deferred.dropSeek()
	p.dispatch.fireStop()
	p.publishPositionZeroLocked()
}

// PlayPause toggles between Play and Pause based on current intent.
func (p *Player) PlayPause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		p.pauseLocked()
	} else {
		p.playLocked()
	}
}

// Seek moves the playback position. While playing the seek is forwarded to
// the engine immediately; while paused it is recorded and applied at the
// next Play, with a best-effort percentage published for the status
// projection in the meantime.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playlist == nil {
		return
	}

	if p.playing {
		p.engine.Seek(seconds)
		p.refreshStatusLocked()
		return
	}

	p.deferred.deferSeek(seconds)
	if p.statusSink != nil {
		s := status.Project(p.engine.Position(), p.engine.Duration(), p.cfg.Format)
		s.Percent = status.Percent(seconds, p.engine.Duration())
		p.statusSink.UpdateStatus(s)
	}
}

// PreviousTrack switches to the previous track, wrapping from the first to
// the last, and always resumes playback.
func (p *Player) PreviousTrack() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playlist == nil {
		return
	}
	p.switchTrackLocked(previousIndex(p.current, p.playlist.Len()))
	p.playLocked()
}

// NextTrack switches to the next track, wrapping from the last to the
// first, and always resumes playback.
func (p *Player) NextTrack() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playlist == nil {
		return
	}
	p.switchTrackLocked(nextIndex(p.current, p.playlist.Len()))
	p.playLocked()
}

// PlayTrack jumps to the given index and plays it. Out-of-range targets are
// silently ignored. Jumping to the already-current index still resumes
// playback rather than no-opping.
func (p *Player) PlayTrack(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playlist == nil {
		return
	}
	idx, ok := clampIndex(index, p.playlist.Len())
	if !ok {
		return
	}

	if idx != p.current {
		p.switchTrackLocked(idx)
	} else {
		p.publishBoundaryLocked()
		p.refreshStatusLocked()
		p.dispatch.fireTrackChange(idx, p.playlist.Track(idx))
	}
	p.playLocked()
}

// CurrentIndex returns the current track index, or -1 before any playlist
// has been loaded.
func (p *Player) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// IsPlaying reports the declared intent, not the raw engine state.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// State returns the reconciler's declared state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.playlist == nil:
		return StateStopped
	case p.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

// CurrentTrack returns the current track, if a playlist is loaded.
func (p *Player) CurrentTrack() (track.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playlist == nil {
		return track.Track{}, false
	}
	return p.playlist.Track(p.current), true
}

// reconcile re-reads live engine state and corrects divergence between the
// declared intent and what the engine is actually doing. It is the only
// mechanism by which the player tolerates playback being driven from
// outside its own API.
func (p *Player) reconcile() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconcileLocked()
}

func (p *Player) reconcileLocked() {
	if p.playlist == nil {
		return
	}

	if p.playing {
		switch {
		case p.engine.Ended():
			if isLast(p.current, p.playlist.Len()) {
				zlog.Debug().Msg("player: playlist finished, parking at start")
				p.parkAtStartLocked()
			} else {
				p.switchTrackLocked(nextIndex(p.current, p.playlist.Len()))
				p.playLocked()
			}
		case p.engine.Paused():
			// Something outside this player paused the engine.
			zlog.Debug().Msg("player: engine paused out of band")
			p.pauseLocked()
		default:
			p.refreshStatusLocked()
		}
		return
	}

	// Intent is paused; detect an out-of-band resume.
	if !p.engine.Paused() && !p.engine.Ended() {
		zlog.Debug().Msg("player: engine resumed out of band")
		p.playLocked()
	}
}

func (p *Player) playLocked() {
	if p.playlist == nil {
		return
	}

	wasPlaying := p.playing
	p.playing = true

	// Loading must precede playing.
	if url, ok := p.deferred.takeSource(); ok {
		p.engine.AssignSource(url)
	}
	if sec, ok := p.deferred.takeSeek(); ok {
		p.engine.Seek(sec)
	}

	if err := p.engine.Play(p.ctx); err != nil {
		// The engine could not play this source. Recoverable: remember the
		// source so a later Play retries it, and demote intent to paused.
		zlog.Warn().Msgf("player: engine rejected play for track %d: %v", p.current, err)
		p.deferred.deferSource(p.playlist.Track(p.current).URL)
		p.playing = false
		p.dispatch.firePause()
		return
	}

	if !wasPlaying {
		p.dispatch.firePlay()
	}
	p.dispatch.fireTrackChange(p.current, p.playlist.Track(p.current))
	p.refreshStatusLocked()
}

func (p *Player) pauseLocked() {
	if p.playlist == nil {
		return
	}
	p.playing = false
	p.engine.Pause()
	p.dispatch.firePause()
}

// switchTrackLocked makes idx the current track: deferred operations are
// cleared before the new source is assigned so a stale seek can never apply
// to the wrong track.
func (p *Player) switchTrackLocked(idx int) {
	p.current = idx
	p.deferred.clear()

	t := p.playlist.Track(idx)
	p.engine.AssignSource(t.URL)

	p.publishPositionZeroLocked()
	p.publishBoundaryLocked()
	p.dispatch.fireTrackChange(idx, t)
}

// parkAtStartLocked handles the end of a full playlist pass: pause, rewind
// the index to 0, and leave the playlist parked at the beginning without
// auto-resuming. Track 0's source is re-deferred so a later Play starts the
// playlist over instead of replaying the final track.
func (p *Player) parkAtStartLocked() {
	p.playing = false
	p.engine.Pause()
	p.dispatch.firePause()

	p.current = 0
	p.deferred.clear()
	p.deferred.deferSource(p.playlist.Track(0).URL)

	p.publishPositionZeroLocked()
	p.publishBoundaryLocked()
	p.dispatch.fireTrackChange(0, p.playlist.Track(0))
}

func (p *Player) refreshStatusLocked() {
	if p.statusSink == nil {
		return
	}
	p.statusSink.UpdateStatus(status.Project(p.engine.Position(), p.engine.Duration(), p.cfg.Format))
}

func (p *Player) publishPositionZeroLocked() {
	if p.statusSink == nil {
		return
	}
	p.statusSink.UpdateStatus(status.Project(0, p.engine.Duration(), p.cfg.Format))
}

func (p *Player) publishBoundaryLocked() {
	if p.boundarySink == nil {
		return
	}
	p.boundarySink.UpdateBoundary(!isFirst(p.current), !isLast(p.current, p.playlist.Len()))
}
