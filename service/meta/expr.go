package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// Expand replaces every ${env.KEY} in text with the value of the environment
// variable KEY, or "" if unset. A reference without a closing brace is kept
// as is; a key with characters other than letters, digits or '_' leaves its
// prefix literal and the remainder is scanned again.
func Expand(text string) string {
	if !strings.Contains(text, envPrefix) {
		return text
	}
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(text[i:], envPrefix)
		if idx < 0 {
			b.WriteString(text[i:])
			break
		}
		b.WriteString(text[i : i+idx])
		start := i + idx + len(envPrefix)
		end := strings.IndexByte(text[start:], '}')
		if end < 0 {
			b.WriteString(text[i+idx:])
			break
		}
		key := text[start : start+end]
		if !isKey(key) {
			b.WriteString(envPrefix)
			i = start
			continue
		}
		b.WriteString(os.Getenv(key))
		i = start + end + 1
	}
	return b.String()
}

func isKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
