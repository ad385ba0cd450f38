package model

import (
	"strconv"
	"strings"
)

// Version is a dotted package version such as "1.10" or "2.0.3".
// Ordering compares dotted segments numerically where possible, so
// "1.9" < "1.10" < "2.0".
type Version string

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	a := strings.Split(string(v), ".")
	b := strings.Split(string(other), ".")

	for i := 0; i < len(a) && i < len(b); i++ {
		na, aNum := atoi(a[i])
		nb, bNum := atoi(b[i])
		switch {
		case aNum && bNum:
			if na != nb {
				return sign(na - nb)
			}
		case aNum != bNum:
			// Numeric segments sort before non-numeric ones ("1" < "rc1").
			if aNum {
				return -1
			}
			return 1
		default:
			if a[i] != b[i] {
				return strings.Compare(a[i], b[i])
			}
		}
	}
	// Equal prefix: the shorter version is older ("1.2" < "1.2.1").
	return sign(len(a) - len(b))
}

// Less reports whether v orders before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
