package bms

import (
	"fmt"
	"strings"
)

// KeyKind is the appearance of a lane.
type KeyKind int

const (
	WhiteKey KeyKind = iota + 1
	WhiteKeyAlt
	BlackKey
	Scratch
	FootPedal
	Button1
	Button2
	Button3
	Button4
	Button5
)

var keyKindChars = map[byte]KeyKind{
	'a': WhiteKey, 'y': WhiteKeyAlt, 'b': BlackKey, 's': Scratch, 'p': FootPedal,
	'q': Button1, 'w': Button2, 'e': Button3, 'r': Button4, 't': Button5,
}

func KeyKindFromChar(c byte) (KeyKind, bool) {
	k, ok := keyKindChars[c]
	return k, ok
}

func (k KeyKind) Char() byte {
	for c, kk := range keyKindChars {
		if kk == k {
			return c
		}
	}
	return '?'
}

// CountsAsKey reports whether the lane counts toward the number of keys.
// Scratches and pedals do not.
func (k KeyKind) CountsAsKey() bool {
	return k != Scratch && k != FootPedal
}

// KeySpec is the order and appearance of the playable lanes. The first Split
// lanes of Order belong to the left side.
type KeySpec struct {
	Split int
	Order []Lane
	Kinds [NumLanes]KeyKind // zero for lanes not in use
}

func (ks *KeySpec) Has(lane Lane) bool { return ks.Kinds[lane] != 0 }

// NumKeys counts the lanes that count as keys.
func (ks *KeySpec) NumKeys() int {
	n := 0
	for _, lane := range ks.Order {
		if ks.Kinds[lane].CountsAsKey() {
			n++
		}
	}
	return n
}

func (ks *KeySpec) Left() []Lane  { return ks.Order[:ks.Split] }
func (ks *KeySpec) Right() []Lane { return ks.Order[ks.Split:] }

type LaneKind struct {
	Lane Lane
	Kind KeyKind
}

// ParseKeySpec parses a sequence of "<channel><kind>" tokens such as
// "16s 11a 12b". Channels must be visible-object channels (1x or 2x).
func ParseKeySpec(s string) ([]LaneKind, bool) {
	var specs []LaneKind
	s = trimWS(s)
	for s != "" {
		ch, rest, ok := scanKey(s)
		if !ok || rest == "" {
			return nil, false
		}
		kind, ok := KeyKindFromChar(rest[0])
		if !ok || ch < 1*36 || ch >= 3*36 {
			return nil, false
		}
		specs = append(specs, LaneKind{Lane: Lane(ch - 1*36), Kind: kind})
		s = trimWS(rest[1:])
	}
	return specs, true
}

type preset struct {
	name        string
	left, right string
}

var presets = []preset{
	{"5", "16s 11a 12b 13a 14b 15a", ""},
	{"10", "16s 11a 12b 13a 14b 15a", "21a 22b 23a 24b 25a 26s"},
	{"5/fp", "16s 11a 12b 13a 14b 15a 17p", ""},
	{"10/fp", "16s 11a 12b 13a 14b 15a 17p", "27p 21a 22b 23a 24b 25a 26s"},
	{"7", "16s 11a 12b 13a 14b 15a 18b 19a", ""},
	{"14", "16s 11a 12b 13a 14b 15a 18b 19a", "21a 22b 23a 24b 25a 28b 29a 26s"},
	{"7/fp", "16s 11a 12b 13a 14b 15a 18b 19a 17p", ""},
	{"14/fp", "16s 11a 12b 13a 14b 15a 18b 19a 17p", "27p 21a 22b 23a 24b 25a 28b 29a 26s"},
	{"9", "11q 12w 13e 14r 15t 22r 23e 24w 25q", ""},
	{"9-bme", "11q 12w 13e 14r 15t 18r 19e 16w 17q", ""},
}

// PresetNames lists the named key layouts accepted by NewKeySpec.
func PresetNames() []string {
	names := make([]string, 0, len(presets)+4)
	for _, p := range presets {
		names = append(names, p.name)
	}
	return append(names, "bms", "bme", "bml", "pms")
}

// PresetKeySpec resolves a preset to its left and right key specifications.
// An empty preset or "bms"/"bme"/"bml" picks one of 5, 7, 10, 14 (with /fp)
// from the lanes in use and #PLAYER; "pms" picks 9 or 9-bme.
func PresetKeySpec(c *Chart, name string) (string, string, bool) {
	var present [NumLanes]bool
	for _, o := range c.Objs {
		if lane, ok := o.ObjectLane(); ok {
			present[lane] = true
		}
	}

	name = strings.ToLower(name)
	switch name {
	case "", "bms", "bme", "bml":
		isBME := present[8] || present[9] || present[36+8] || present[36+9]
		hasPedal := present[7] || present[36+7]
		switch {
		case (c.Player == CouplePlay || c.Player == DoublePlay) && isBME:
			name = "14"
		case c.Player == CouplePlay || c.Player == DoublePlay:
			name = "10"
		case isBME:
			name = "7"
		default:
			name = "5"
		}
		if hasPedal {
			name += "/fp"
		}
	case "pms":
		if present[6] || present[7] || present[8] || present[9] {
			name = "9-bme"
		} else {
			name = "9"
		}
	}

	for _, p := range presets {
		if p.name == name {
			return p.left, p.right, true
		}
	}
	return "", "", false
}

type KeySpecOptions struct {
	Preset string
	// Left and Right override the preset when either is set.
	Left, Right string
	// Path is the chart path; a .pms extension implies the "pms" preset.
	Path string
}

// NewKeySpec builds the lane layout for the chart.
func NewKeySpec(c *Chart, opts KeySpecOptions) (*KeySpec, error) {
	left, right := opts.Left, opts.Right
	if left == "" && right == "" {
		name := opts.Preset
		if name == "" && strings.HasSuffix(strings.ToLower(opts.Path), ".pms") {
			name = "pms"
		}
		var ok bool
		if left, right, ok = PresetKeySpec(c, name); !ok {
			return nil, fmt.Errorf("invalid preset name: %s", opts.Preset)
		}
	}

	ks := &KeySpec{}
	add := func(keys string) (int, bool) {
		specs, ok := ParseKeySpec(keys)
		if !ok || len(specs) == 0 {
			return 0, false
		}
		for _, s := range specs {
			if ks.Kinds[s.Lane] != 0 {
				return 0, false
			}
			ks.Order = append(ks.Order, s.Lane)
			ks.Kinds[s.Lane] = s.Kind
		}
		return len(specs), true
	}

	if left == "" {
		return nil, fmt.Errorf("no key model is specified")
	}
	n, ok := add(left)
	if !ok {
		return nil, fmt.Errorf("invalid key spec for left hand side: %s", left)
	}
	ks.Split += n
	if right != "" {
		n, ok := add(right)
		if !ok {
			return nil, fmt.Errorf("invalid key spec for right hand side: %s", right)
		}
		// only couple play splits the panes
		if c.Player != CouplePlay {
			ks.Split += n
		}
	}
	return ks, nil
}
