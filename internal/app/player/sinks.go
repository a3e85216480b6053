package player

import "github.com/osa030/tapedeck/internal/app/status"

// StatusSink receives the display projection of the playback position
// whenever it changes. Sinks are optional; a nil sink is a valid
// configuration and the player skips the call.
type StatusSink interface {
	UpdateStatus(s status.Status)
}

// BoundarySink receives literal boundary flags whenever the current index
// changes: canPrevious is false on the first track and canNext is false on
// the last, independent of whether navigation wraps.
type BoundarySink interface {
	UpdateBoundary(canPrevious, canNext bool)
}
