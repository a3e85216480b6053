package player

import "context"

// Engine is the native playback engine the player drives. The player is the
// engine's only mutator from this side, but the engine can still be paused,
// resumed, or advanced by forces outside the player's control (hardware
// media keys, another client on the same account), so the player never
// assumes the engine's state matches its own intent.
type Engine interface {
	// AssignSource points the engine at a new media source. It does not
	// start playback.
	AssignSource(url string)

	// Play asks the engine to start or resume playback of the assigned
	// source. A non-nil error means the engine rejected the request; the
	// player treats this as recoverable, not fatal.
	Play(ctx context.Context) error

	// Pause pauses playback. Safe to call when already paused.
	Pause()

	// Seek moves the playback position, in seconds.
	Seek(seconds float64)

	// Position returns the current playback position in seconds.
	Position() float64

	// Duration returns the duration of the current source in seconds.
	// Implementations may return 0 or NaN before metadata is known.
	Duration() float64

	// Paused reports whether the engine is currently paused.
	Paused() bool

	// Ended reports whether the current source has played to its end.
	Ended() bool
}

// EndedNotifier is an optional Engine capability. Engines that can push an
// end-of-track notification register a callback here, letting the player
// reconcile immediately instead of waiting for the next tick.
type EndedNotifier interface {
	NotifyEnded(fn func())
}
