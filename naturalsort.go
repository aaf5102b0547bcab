package schemalift

import (
	"sort"
	"strings"
)

// naturalCompare orders a and b by interleaved runs of digits and
// non-digits. Digit runs compare by numeric value, so "2" sorts before
// "10"; non-digit runs compare lexicographically.
func naturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ia, ja := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			ra := strings.TrimLeft(a[ia:i], "0")
			rb := strings.TrimLeft(b[ja:j], "0")
			if len(ra) != len(rb) {
				if len(ra) < len(rb) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(ra, rb); c != 0 {
				return c
			}
			continue
		}
		if a[i] != b[j] {
			if a[i] < b[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

// sortNatural sorts names in natural order. The sort is stable, so
// names comparing equal keep their listing order.
func sortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalCompare(names[i], names[j]) < 0
	})
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
