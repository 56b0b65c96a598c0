package bms

import (
	"strconv"
	"strings"
	"unicode"
)

// The scanners below accept a number prefix followed by arbitrary garbage and
// return the unconsumed remainder.

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func scanUintLen(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

func scanIntLen(s string) int {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		if n := scanUintLen(s[1:]); n > 0 {
			return n + 1
		}
		return 0
	}
	return scanUintLen(s)
}

func scanFloatLen(s string) int {
	pos := scanIntLen(s)
	if pos == 0 {
		return 0
	}
	if pos < len(s) && s[pos] == '.' {
		n := scanUintLen(s[pos+1:])
		if n == 0 {
			return 0
		}
		pos += 1 + n
	}
	if pos < len(s) && (s[pos] == 'e' || s[pos] == 'E') {
		n := scanIntLen(s[pos+1:])
		if n == 0 {
			return 0
		}
		pos += 1 + n
	}
	return pos
}

func scanInt(s string) (int, string, bool) {
	n := scanIntLen(s)
	if n == 0 {
		return 0, s, false
	}
	v, err := strconv.Atoi(s[:n])
	if err != nil {
		return 0, s, false
	}
	return v, s[n:], true
}

func scanFloat(s string) (float64, string, bool) {
	n := scanFloatLen(s)
	if n == 0 {
		return 0, s, false
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0, s, false
	}
	return v, s[n:], true
}

func scanKey(s string) (Key, string, bool) {
	k, ok := ParseKey(s)
	if !ok {
		return NoKey, s, false
	}
	return k, s[2:], true
}

func scanMeasure(s string) (int, string, bool) {
	if len(s) < 3 || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[2]) {
		return 0, s, false
	}
	v, _ := strconv.Atoi(s[:3])
	return v, s[3:], true
}

// skipWS requires at least one whitespace character.
func skipWS(s string) (string, bool) {
	t := strings.TrimLeftFunc(s, unicode.IsSpace)
	return t, len(t) < len(s)
}

func trimWS(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }

// wsInt scans whitespace followed by an integer.
func wsInt(s string) (int, bool) {
	s, ok := skipWS(s)
	if !ok {
		return 0, false
	}
	v, _, ok := scanInt(s)
	return v, ok
}

// wsText scans whitespace followed by the rest of the line, trimmed.
func wsText(s string) (string, bool) {
	s, ok := skipWS(s)
	if !ok {
		return "", false
	}
	return strings.TrimRightFunc(s, unicode.IsSpace), true
}
