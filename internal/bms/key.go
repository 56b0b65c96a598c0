package bms

// Key is a two-letter base-36 alphanumeric identifier used for sounds, images
// and the BPM/STOP tables. Valid keys are in [0, MaxKey).
type Key int

const (
	MaxKey = 36 * 36

	// NoKey marks an absent sound or image reference.
	NoKey Key = -1
)

func digit36(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// ParseKey decodes the first two characters of s.
func ParseKey(s string) (Key, bool) {
	if len(s) < 2 {
		return NoKey, false
	}
	a, ok := digit36(s[0])
	if !ok {
		return NoKey, false
	}
	b, ok := digit36(s[1])
	if !ok {
		return NoKey, false
	}
	return Key(a*36 + b), true
}

func (k Key) Valid() bool { return k >= 0 && k < MaxKey }

func (k Key) String() string {
	const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if !k.Valid() {
		return "??"
	}
	return string([]byte{digits[k/36], digits[k%36]})
}

// Hex reinterprets both base-36 digits as hexadecimal digits. It fails when
// either digit is 16 or above. Only channel 03 uses this.
func (k Key) Hex() (int, bool) {
	if !k.Valid() {
		return 0, false
	}
	hi, lo := int(k)/36, int(k)%36
	if hi >= 16 || lo >= 16 {
		return 0, false
	}
	return hi*16 + lo, true
}
