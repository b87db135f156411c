package protocol

import (
	"strconv"
	"strings"
)

// Boolean renderings used by the reached query.
const (
	True  = "True"
	False = "False"
)

// FormatTiles joins tile names with single spaces.
func FormatTiles(names []string) string {
	return strings.Join(names, " ")
}

// FormatGroups flattens groups of tile names: names within a group and the
// groups themselves are both separated by a single space.
func FormatGroups(groups [][]string) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		parts = append(parts, FormatTiles(g))
	}
	return strings.Join(parts, " ")
}

// FormatBool renders a boolean as True or False.
func FormatBool(b bool) string {
	if b {
		return True
	}
	return False
}

// FormatCount renders a count as a decimal integer.
func FormatCount(n int) string {
	return strconv.Itoa(n)
}
