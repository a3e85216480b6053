package player

// Index arithmetic for playlist navigation. All functions assume
// length >= 1; the player never calls them without a loaded playlist.

// previousIndex returns the index before current, wrapping to the last
// index when current is 0. A length-1 playlist wraps to itself.
func previousIndex(current, length int) int {
	if current == 0 {
		return length - 1
	}
	return current - 1
}

// nextIndex returns the index after current, wrapping to 0 when current is
// the last index.
func nextIndex(current, length int) int {
	if current == length-1 {
		return 0
	}
	return current + 1
}

// isFirst reports whether current is the literal first position. No
// wraparound semantics implied.
func isFirst(current int) bool {
	return current == 0
}

// isLast reports whether current is the literal last position.
func isLast(current, length int) bool {
	return current == length-1
}

// clampIndex validates a jump target. ok is false when target is outside
// [0, length); the caller silently ignores the request in that case.
func clampIndex(target, length int) (int, bool) {
	if target < 0 || target >= length {
		return 0, false
	}
	return target, true
}
