package storage

import "strings"

// matchPattern reports whether key matches the glob pattern. Patterns with
// at most one '*' and no other special characters take the fast path.
func matchPattern(key, pattern string) bool {
	if isSimplePattern(pattern) {
		return matchPatternSimple(key, pattern)
	}
	return matchPatternGlob(key, pattern)
}

// isSimplePattern reports whether pattern uses nothing but a single '*'
func isSimplePattern(pattern string) bool {
	if strings.ContainsAny(pattern, "?[\\") {
		return false
	}
	return strings.Count(pattern, "*") <= 1
}

// matchPatternSimple handles exact, prefix, suffix and single infix
// wildcard patterns
func matchPatternSimple(key, pattern string) bool {
	starIndex := strings.IndexByte(pattern, '*')
	if starIndex == -1 {
		return key == pattern
	}

	prefix, suffix := pattern[:starIndex], pattern[starIndex+1:]
	return len(key) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(key, prefix) &&
		strings.HasSuffix(key, suffix)
}

// matchPatternGlob implements Redis glob matching over bytes.
//
// A mismatch after a '*' resumes from the most recent star with one more
// byte of key consumed, so the loop is linear in the common case and never
// recurses.
func matchPatternGlob(key, pattern string) bool {
	px, kx := 0, 0
	starPx, starKx := -1, 0

	for px < len(pattern) || kx < len(key) {
		if px < len(pattern) {
			switch c := pattern[px]; c {
			case '*':
				starPx = px
				starKx = kx + 1
				px++
				continue
			case '?':
				if kx < len(key) {
					px++
					kx++
					continue
				}
			case '[':
				if kx < len(key) {
					if end, ok := matchClass(pattern, px, key[kx]); ok {
						px = end
						kx++
						continue
					}
				}
			default:
				width := 1
				if c == '\\' && px+1 < len(pattern) {
					c = pattern[px+1]
					width = 2
				}
				if kx < len(key) && key[kx] == c {
					px += width
					kx++
					continue
				}
			}
		}

		if starPx >= 0 && starKx <= len(key) {
			px = starPx
			kx = starKx
			continue
		}
		return false
	}

	return true
}

// matchClass matches ch against the bracket expression starting at
// pattern[px] == '['. It returns the index just past the closing ']' and
// whether ch is accepted. An unterminated class runs to the end of the
// pattern.
func matchClass(pattern string, px int, ch byte) (int, bool) {
	i := px + 1
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}

	matched := false
	for i < len(pattern) && pattern[i] != ']' {
		switch {
		case pattern[i] == '\\' && i+1 < len(pattern):
			if pattern[i+1] == ch {
				matched = true
			}
			i += 2
		case i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']':
			lo, hi := pattern[i], pattern[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if ch >= lo && ch <= hi {
				matched = true
			}
			i += 3
		default:
			if pattern[i] == ch {
				matched = true
			}
			i++
		}
	}
	if i < len(pattern) {
		i++
	}

	return i, matched != negate
}
