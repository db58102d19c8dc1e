package usecase

import "strings"

// extractJSONObject returns the first balanced {...} block of raw. Braces
// inside JSON strings are ignored.
func extractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		if end, ok := matchObject(raw, start); ok {
			return raw[start : end+1], true
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchObject(raw string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
