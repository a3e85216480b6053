package player

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tapedeck/internal/app/status"
	"github.com/osa030/tapedeck/internal/domain/track"
)

// fakeEngine is a scriptable Engine. Tests mutate its fields to simulate
// out-of-band changes and inspect its call records.
type fakeEngine struct {
	source string
	pos    float64
	dur    float64
	paused bool
	ended  bool

	playErr error // returned by the next Play calls until cleared

	assigns    []string
	seeks      []float64
	playCalls  int
	pauseCalls int

	endedFn func()
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{paused: true, dur: 100}
}

func (e *fakeEngine) AssignSource(url string) {
	e.source = url
	e.pos = 0
	e.ended = false
	e.assigns = append(e.assigns, url)
}

func (e *fakeEngine) Play(_ context.Context) error {
	e.playCalls++
	if e.playErr != nil {
		return e.playErr
	}
	e.paused = false
	e.ended = false
	return nil
}

func (e *fakeEngine) Pause() {
	e.pauseCalls++
	e.paused = true
}

func (e *fakeEngine) Seek(seconds float64) {
	e.pos = seconds
	e.seeks = append(e.seeks, seconds)
}

func (e *fakeEngine) Position() float64 { return e.pos }
func (e *fakeEngine) Duration() float64 { return e.dur }
func (e *fakeEngine) Paused() bool      { return e.paused }
func (e *fakeEngine) Ended() bool       { return e.ended }

func (e *fakeEngine) NotifyEnded(fn func()) { e.endedFn = fn }

// recordingSinks capture projection updates.
type recordingStatusSink struct {
	updates []status.Status
}

func (s *recordingStatusSink) UpdateStatus(st status.Status) {
	s.updates = append(s.updates, st)
}

type recordingBoundarySink struct {
	canPrev, canNext bool
	updates          int
}

func (s *recordingBoundarySink) UpdateBoundary(canPrevious, canNext bool) {
	s.canPrev = canPrevious
	s.canNext = canNext
	s.updates++
}

func newTestPlayer(t *testing.T, n int) (*Player, *fakeEngine) {
	t.Helper()

	e := newFakeEngine()
	// A huge tick interval keeps the background tick out of the way;
	// tests drive reconciliation by calling reconcile directly.
	p := New(e, Config{TickInterval: time.Hour})
	t.Cleanup(p.Close)

	if n > 0 {
		tracks := make([]track.Track, n)
		for i := range tracks {
			tracks[i] = track.Track{URL: urlFor(i)}
		}
		require.NoError(t, p.Load(tracks))
	}
	return p, e
}

func urlFor(i int) string {
	return "http://example.com/" + string(rune('a'+i)) + ".mp3"
}

func TestPlayer_LoadStartsAtZero(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		p, _ := newTestPlayer(t, n)
		assert.Equal(t, 0, p.CurrentIndex())
		assert.False(t, p.IsPlaying())
		assert.Equal(t, StatePaused, p.State())
	}
}

func TestPlayer_LoadRejectsInvalidPlaylists(t *testing.T) {
	p, _ := newTestPlayer(t, 3)

	err := p.Load(nil)
	assert.True(t, errors.Is(err, track.ErrEmptyPlaylist))

	err = p.Load([]track.Track{{URL: "ok"}, {}})
	assert.True(t, errors.Is(err, track.ErrMissingURL))

	// Failed loads leave prior state untouched.
	assert.Equal(t, 0, p.CurrentIndex())
	assert.Equal(t, StatePaused, p.State())
}

func TestPlayer_PlayAssignsDeferredSource(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	// Load defers the first track's source instead of assigning it.
	assert.Empty(t, e.assigns)

	p.Play()
	require.Equal(t, []string{urlFor(0)}, e.assigns)
	assert.Equal(t, 1, e.playCalls)
	assert.True(t, p.IsPlaying())

	// A second Play has no deferred source left to assign.
	p.Play()
	assert.Equal(t, []string{urlFor(0)}, e.assigns)
}

func TestPlayer_Wraparound(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{name: "single track", length: 1},
		{name: "three tracks", length: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPlayer(t, tt.length)

			p.PreviousTrack()
			assert.Equal(t, tt.length-1, p.CurrentIndex())

			p.NextTrack()
			assert.Equal(t, 0, p.CurrentIndex())
		})
	}
}

func TestPlayer_NextTrackAlwaysPlays(t *testing.T) {
	p, e := newTestPlayer(t, 3)

	p.NextTrack()
	assert.Equal(t, 1, p.CurrentIndex())
	assert.True(t, p.IsPlaying())
	assert.Equal(t, urlFor(1), e.source)
}

func TestPlayer_PlayTrackInvalidIndexIsSilentNoop(t *testing.T) {
	p, e := newTestPlayer(t, 3)
	p.PlayTrack(1)
	require.Equal(t, 1, p.CurrentIndex())

	for _, target := range []int{-1, 3, 99} {
		p.PlayTrack(target)
		assert.Equal(t, 1, p.CurrentIndex())
	}
	// No extra engine activity from the rejected jumps.
	assert.Equal(t, 1, e.playCalls)
}

func TestPlayer_PlayTrackSameIndexStillResumes(t *testing.T) {
	p, e := newTestPlayer(t, 3)

	p.PlayTrack(1)
	p.Pause()
	require.False(t, p.IsPlaying())

	// Jumping to the current index resumes playback.
	p.PlayTrack(1)
	assert.True(t, p.IsPlaying())
	assert.Equal(t, 2, e.playCalls)
}

func TestPlayer_TrackChangeFiredOncePerDistinctIndex(t *testing.T) {
	p, _ := newTestPlayer(t, 0)

	var delivered []int
	p.OnTrackChange(func(index int, _ track.Track) {
		delivered = append(delivered, index)
	})

	require.NoError(t, p.Load([]track.Track{{URL: "a"}, {URL: "b"}}))
	p.Play()        // same settled index as the load notification
	p.PlayTrack(0)  // still index 0
	p.NextTrack()   // index 1
	p.PlayTrack(1)  // still index 1

	// Reloading resets the dedup state, so index 0 fires again even though
	// the previous playlist also ended on a dispatched index.
	require.NoError(t, p.Load([]track.Track{{URL: "c"}, {URL: "d"}}))

	assert.Equal(t, []int{0, 1, 0}, delivered)
}

func TestPlayer_SeekWhilePlayingIsImmediate(t *testing.T) {
	p, e := newTestPlayer(t, 1)

	p.Play()
	p.Seek(30)
	assert.Equal(t, []float64{30}, e.seeks)
}

func TestPlayer_SeekWhilePausedIsDeferred(t *testing.T) {
	p, e := newTestPlayer(t, 1)
	sink := &recordingStatusSink{}
	p.SetStatusSink(sink)

	p.Seek(30)
	// Not forwarded to the engine yet.
	assert.Empty(t, e.seeks)

	// Best-effort percentage is still published.
	require.NotEmpty(t, sink.updates)
	assert.InDelta(t, 30.0, sink.updates[len(sink.updates)-1].Percent, 0.001)

	// Applied exactly once, the next time Play is called.
	p.Play()
	assert.Equal(t, []float64{30}, e.seeks)

	p.Pause()
	p.Play()
	assert.Equal(t, []float64{30}, e.seeks)
}

func TestPlayer_SeekDeferredSuperseded(t *testing.T) {
	p, e := newTestPlayer(t, 1)

	p.Seek(30)
	p.Seek(45)
	p.Play()
	assert.Equal(t, []float64{45}, e.seeks)
}

func TestPlayer_StopRewindsAndDropsDeferredSeek(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	stops := 0
	p.OnStop(func() { stops++ })

	p.Seek(30) // deferred while paused
	p.Stop()

	assert.Equal(t, []float64{0}, e.seeks)
	assert.Equal(t, 1, stops)

	// The dropped seek must not resurface on the next play.
	p.Play()
	assert.Equal(t, []float64{0}, e.seeks)
}

func TestPlayer_TrackSwitchClearsStaleDeferredSeek(t *testing.T) {
	p, e := newTestPlayer(t, 3)

	p.Seek(50) // deferred against track 0
	p.NextTrack()

	// The stale seek must not apply to track 1.
	assert.NotContains(t, e.seeks, 50.0)
}

func TestPlayer_PlayRejectionIsRecoverable(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	pauses := 0
	p.OnPause(func() { pauses++ })

	e.playErr = errors.New("codec not supported")
	p.Play()

	assert.False(t, p.IsPlaying())
	assert.Equal(t, 1, pauses)

	// The failed source was re-deferred; a later Play retries it.
	e.playErr = nil
	p.Play()
	assert.True(t, p.IsPlaying())
	assert.Equal(t, []string{urlFor(0), urlFor(0)}, e.assigns)
}

func TestPlayer_OnPlayFiresOncePerTransition(t *testing.T) {
	p, _ := newTestPlayer(t, 2)

	plays := 0
	p.OnPlay(func() { plays++ })

	p.Play()
	p.Play() // already playing, not a transition
	assert.Equal(t, 1, plays)

	p.Pause()
	p.Play()
	assert.Equal(t, 2, plays)
}

func TestPlayer_PlayPauseTogglesState(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	p.PlayPause()
	assert.True(t, p.IsPlaying())
	assert.Equal(t, StatePlaying, p.State())
	assert.False(t, e.paused)

	p.PlayPause()
	assert.False(t, p.IsPlaying())
	assert.Equal(t, StatePaused, p.State())
	assert.True(t, e.paused)
	assert.Equal(t, 1, e.pauseCalls)

	p.PlayPause()
	assert.True(t, p.IsPlaying())
	assert.Equal(t, 2, e.playCalls)
}

func TestPlayer_ExternalPauseDetectedByTick(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	pauses := 0
	p.OnPause(func() { pauses++ })

	p.Play()
	require.True(t, p.IsPlaying())

	// Something outside the player pauses the engine.
	e.paused = true

	p.reconcile()
	assert.False(t, p.IsPlaying())
	assert.Equal(t, 1, pauses)

	// Further ticks see intent and engine in agreement.
	p.reconcile()
	assert.Equal(t, 1, pauses)
}

func TestPlayer_ExternalResumeDetectedByTick(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	plays := 0
	p.OnPlay(func() { plays++ })

	p.Play()
	p.Pause()
	require.False(t, p.IsPlaying())

	// Something outside the player resumes the engine.
	e.paused = false

	p.reconcile()
	assert.True(t, p.IsPlaying())
	assert.Equal(t, 2, plays)
}

func TestPlayer_EndedAdvancesToNextTrack(t *testing.T) {
	p, e := newTestPlayer(t, 3)

	p.Play()
	e.ended = true

	p.reconcile()
	assert.Equal(t, 1, p.CurrentIndex())
	assert.True(t, p.IsPlaying())
	assert.Equal(t, urlFor(1), e.source)
}

func TestPlayer_EndOfPlaylistParksAtStart(t *testing.T) {
	p, e := newTestPlayer(t, 3)

	// Index 0 was already announced by the load itself; the handler
	// registered now sees only subsequent selections.
	var delivered []int
	p.OnTrackChange(func(index int, _ track.Track) {
		delivered = append(delivered, index)
	})

	p.Play()
	p.NextTrack()
	p.NextTrack()
	require.Equal(t, 2, p.CurrentIndex())

	playCallsBefore := e.playCalls
	e.ended = true

	p.reconcile()
	assert.Equal(t, 0, p.CurrentIndex())
	assert.False(t, p.IsPlaying())
	// No auto-resume after a full pass.
	assert.Equal(t, playCallsBefore, e.playCalls)
	assert.Equal(t, []int{1, 2, 0}, delivered)

	// A later Play starts the playlist over from track 0.
	p.Play()
	assert.Equal(t, urlFor(0), e.source)
}

func TestPlayer_EagerReconcileOnEndedNotification(t *testing.T) {
	p, e := newTestPlayer(t, 2)
	require.NotNil(t, e.endedFn)

	p.Play()
	e.ended = true

	// The engine pushes its end-of-track notification instead of waiting
	// for the next tick.
	e.endedFn()
	assert.Equal(t, 1, p.CurrentIndex())
}

func TestPlayer_LoadWhilePlayingResumesOnNewPlaylist(t *testing.T) {
	p, e := newTestPlayer(t, 2)

	p.Play()
	require.True(t, p.IsPlaying())

	require.NoError(t, p.Load([]track.Track{{URL: "new-a"}, {URL: "new-b"}}))

	assert.Equal(t, 0, p.CurrentIndex())
	assert.True(t, p.IsPlaying())
	assert.Equal(t, "new-a", e.source)
}

func TestPlayer_BoundaryProjection(t *testing.T) {
	p, _ := newTestPlayer(t, 3)
	sink := &recordingBoundarySink{}
	p.SetBoundarySink(sink)

	p.PlayTrack(0)
	assert.False(t, sink.canPrev)
	assert.True(t, sink.canNext)

	p.PlayTrack(1)
	assert.True(t, sink.canPrev)
	assert.True(t, sink.canNext)

	p.PlayTrack(2)
	assert.True(t, sink.canPrev)
	assert.False(t, sink.canNext)
}

func TestPlayer_OperationsBeforeLoadAreNoops(t *testing.T) {
	p, e := newTestPlayer(t, 0)

	assert.NotPanics(t, func() {
		p.Play()
		p.Pause()
		p.Stop()
		p.PlayPause()
		p.Seek(10)
		p.NextTrack()
		p.PreviousTrack()
		p.PlayTrack(0)
		p.reconcile()
	})
	assert.Equal(t, -1, p.CurrentIndex())
	assert.Equal(t, StateStopped, p.State())
	assert.Zero(t, e.playCalls)
}

func TestPlayer_PanickingHandlerDoesNotPropagate(t *testing.T) {
	p, _ := newTestPlayer(t, 2)

	p.OnPlay(func() { panic("embedder bug") })
	assert.NotPanics(t, p.Play)
	assert.True(t, p.IsPlaying())
}
