package utils

import (
	"strconv"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with binary units and one decimal,
// e.g. 1536 -> "1.5 KB". A trailing ".0" is dropped ("1 KB").
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s + " " + sizeUnits[i]
}

// Truncate shortens text to at most max runes, appending "..." when cut.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
