// Package status provides display-time formatting and the playback status
// projection published to status sinks.
package status

import (
	"fmt"
	"math"
)

// DefaultNoTimeText is shown when a time value is not a number, typically
// because the engine has not reported a duration yet.
const DefaultNoTimeText = "--:--"

// FormatOptions controls display-time rendering.
type FormatOptions struct {
	PadMinutes bool   // Zero-pad minutes below one hour ("00:42" instead of "0:42")
	NoTimeText string // Override for the not-a-time placeholder (default "--:--")
}

// Format renders a number of seconds as a clock-style display string.
//
// Values are truncated toward zero per unit, the sign applies to the whole
// string, and the hour field is elided below one hour. Minutes are always
// two digits when hours are shown; below one hour they are padded only when
// PadMinutes is set. NaN and infinite inputs render as the not-a-time text.
func Format(seconds float64, opts FormatOptions) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		if opts.NoTimeText != "" {
			return opts.NoTimeText
		}
		return DefaultNoTimeText
	}

	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	total := int(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	}
	if opts.PadMinutes {
		return fmt.Sprintf("%s%02d:%02d", sign, m, s)
	}
	return fmt.Sprintf("%s%d:%02d", sign, m, s)
}
