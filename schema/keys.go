package schema

import (
	"strings"
	"unicode"
)

// ToWireKey converts a camelCase field name to the UPPER_SNAKE wire form.
// Runs of capitals stay together: "instanceID" becomes "INSTANCE_ID".
func ToWireKey(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// FromWireKey converts an UPPER_SNAKE wire key to camelCase
func FromWireKey(key string) string {
	parts := strings.Split(strings.ToLower(key), "_")
	var b strings.Builder
	b.Grow(len(key))
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(p)
			first = false
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
