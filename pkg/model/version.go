package model

import "strings"

// Version is a package version. Ordinary versions are opaque strings
// ordered by a debian-style comparator. Packages tracked from a git
// remote carry one of the distinguished head versions instead of a
// release number.
type Version string

// HeadState qualifies a head version: the local checkout may be in
// sync with the remote tip, behind it, or in an undetermined state.
type HeadState int

const (
	// HeadUnknown means the remote tip has not been queried yet
	HeadUnknown HeadState = iota
	// HeadBehind means the remote has commits the local tree lacks
	HeadBehind
	// HeadUpToDate means the local tree matches the remote tip
	HeadUpToDate
)

const (
	headUpToDateString = "head"
	headBehindString   = "head.behind"
	headUnknownString  = "head.unknown"
)

// Head returns the head version carrying the given state.
func Head(state HeadState) Version {
	switch state {
	case HeadBehind:
		return headBehindString
	case HeadUpToDate:
		return headUpToDateString
	default:
		return headUnknownString
	}
}

// IsHead tells whether this version is one of the head forms.
func (v Version) IsHead() bool {
	switch v {
	case headUpToDateString, headBehindString, headUnknownString:
		return true
	}
	return false
}

// HeadState returns the sub-state of a head version. Calling it on an
// ordinary version yields HeadUnknown.
func (v Version) HeadState() HeadState {
	switch v {
	case headUpToDateString:
		return HeadUpToDate
	case headBehindString:
		return HeadBehind
	default:
		return HeadUnknown
	}
}

func (v Version) String() string {
	return string(v)
}

// Compare orders versions: negative when v sorts before o, zero when
// equal, positive otherwise. Head versions sort above every ordinary
// version; among themselves up-to-date > behind > unknown, so that a
// behind entry reads as older than the fresh tip offered by the index.
func (v Version) Compare(o Version) int {
	switch {
	case v.IsHead() && o.IsHead():
		return int(v.HeadState()) - int(o.HeadState())
	case v.IsHead():
		return 1
	case o.IsHead():
		return -1
	}
	return compareOrdinary(string(v), string(o))
}

// compareOrdinary implements the usual dpkg ordering: alternating
// non-digit and digit runs, with '~' sorting below everything
// including the end of the string.
func compareOrdinary(a, b string) int {
	for a != "" || b != "" {
		if c := compareRunes(nonDigitRun(&a), nonDigitRun(&b)); c != 0 {
			return c
		}
		if c := compareNumeric(digitRun(&a), digitRun(&b)); c != 0 {
			return c
		}
	}
	return 0
}

func nonDigitRun(s *string) string {
	i := 0
	for i < len(*s) && ((*s)[i] < '0' || (*s)[i] > '9') {
		i++
	}
	run := (*s)[:i]
	*s = (*s)[i:]
	return run
}

func digitRun(s *string) string {
	i := 0
	for i < len(*s) && (*s)[i] >= '0' && (*s)[i] <= '9' {
		i++
	}
	run := (*s)[:i]
	*s = (*s)[i:]
	return run
}

// order ranks a byte for the non-digit comparison: '~' lowest, then
// end-of-string, then letters, then everything else by byte value.
func order(c byte, ok bool) int {
	switch {
	case !ok:
		return 0
	case c == '~':
		return -1
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return int(c)
	default:
		return int(c) + 256
	}
}

func compareRunes(a, b string) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var ca, cb byte
		oka, okb := i < len(a), i < len(b)
		if oka {
			ca = a[i]
		}
		if okb {
			cb = b[i]
		}
		if d := order(ca, oka) - order(cb, okb); d != 0 {
			return d
		}
	}
	return 0
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}
