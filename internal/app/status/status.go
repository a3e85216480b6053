package status

import "math"

// Status is the display projection of a playback position.
type Status struct {
	Elapsed   string  // Time played so far
	Remaining string  // Time left, rendered with a leading minus
	Duration  string  // Total track duration
	Percent   float64 // Position as a percentage of duration, in [0, 100]
}

// Project computes the display projection for the given position and
// duration, both in seconds. A duration that is NaN or not positive yields
// not-a-time placeholders and a zero percentage.
func Project(position, duration float64, opts FormatOptions) Status {
	s := Status{
		Elapsed:   Format(position, opts),
		Remaining: Format(-(duration - position), opts),
		Duration:  Format(duration, opts),
	}
	if !math.IsNaN(duration) && duration > 0 {
		s.Percent = Percent(position, duration)
	}
	return s
}

// Percent returns position/duration as a percentage clamped to [0, 100].
// Returns 0 when duration is not positive.
func Percent(position, duration float64) float64 {
	if math.IsNaN(duration) || math.IsNaN(position) || duration <= 0 {
		return 0
	}
	pct := position / duration * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
