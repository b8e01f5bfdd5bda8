package caldate

// Compare orders possibly missing, possibly invalid dates for sorting and
// grouping. Present dates come before missing ones and valid dates before
// invalid ones; two missing or two invalid dates are equal.
func Compare(a, b *Date) int {
	switch {
	case a != nil && b == nil:
		return -1
	case a == nil && b != nil:
		return 1
	case a == nil && b == nil:
		return 0
	}
	switch {
	case a.valid && !b.valid:
		return -1
	case !a.valid && b.valid:
		return 1
	case !a.valid && !b.valid:
		return 0
	}
	switch {
	case a.t.After(b.t):
		return 1
	case a.t.Before(b.t):
		return -1
	default:
		return 0
	}
}

// Equal reports whether two optional dates hold the same value. Invalid
// dates are equal when they were read from the same text.
func Equal(a, b *Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.valid != b.valid {
		return false
	}
	if !a.valid {
		return a.raw == b.raw
	}
	return a.hasTime == b.hasTime && a.t.Equal(b.t)
}
