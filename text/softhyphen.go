package text

import (
	"strings"

	"github.com/h0rv/epub-stream-sub001/bookenum"
)

// SoftHyphen is the Unicode soft hyphen, U+00AD: an invisible discretionary
// break point that only renders when a line actually breaks there.
const SoftHyphen = '­'

// ApplySoftHyphenPolicy rewrites s per policy. Under SoftHyphenIgnore every
// soft hyphen is removed. Under SoftHyphenDiscretionary s is returned
// unchanged: the rune survives into layout, which is the only stage that
// knows where a line actually breaks.
func ApplySoftHyphenPolicy(s string, policy bookenum.SoftHyphenPolicy) string {
	if policy == bookenum.SoftHyphenIgnore {
		if !strings.ContainsRune(s, SoftHyphen) {
			return s
		}
		return strings.Map(func(r rune) rune {
			if r == SoftHyphen {
				return -1
			}
			return r
		}, s)
	}
	return s
}

// SplitAtSoftHyphens returns the segments of s between soft hyphens,
// without the hyphen runes themselves, for a layout engine that wants to
// consider a discretionary break opportunity inside a single "word".
// Returns a single-element slice when s has no soft hyphen.
func SplitAtSoftHyphens(s string) []string {
	if !strings.ContainsRune(s, SoftHyphen) {
		return []string{s}
	}
	return strings.Split(s, string(SoftHyphen))
}
