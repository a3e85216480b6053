// Package player provides the playback intent reconciliation engine: a
// state machine that tracks desired vs. actual playback state against a
// native engine it does not own, defers operations the engine cannot honor
// yet, and corrects out-of-band divergence on a periodic tick.
package player

// State represents the reconciler's declared playback state.
type State int

const (
	StateStopped State = iota // No playlist loaded
	StatePlaying              // Intent is playing
	StatePaused               // Playlist loaded, intent is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
