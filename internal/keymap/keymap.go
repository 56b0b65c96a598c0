// Package keymap binds keyboard keys to lanes and player commands.
package keymap

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"gopkg.in/yaml.v3"

	"github.com/cbegin/bmsplay-go/internal/bms"
)

// keyFile is the YAML layout of a key binding file. Lanes are named by
// their channel, e.g. "11" or "26"; keys by their ebiten names.
//
//	lanes:
//	  "11": [Z]
//	  "16": [ShiftLeft, ControlLeft]
//	speed_up: [F4]
type keyFile struct {
	Lanes     map[string][]string `yaml:"lanes"`
	SpeedUp   []string            `yaml:"speed_up"`
	SpeedDown []string            `yaml:"speed_down"`
	Quit      []string            `yaml:"quit"`
}

var defaultKeys = keyFile{
	Lanes: map[string][]string{
		"16": {"ShiftLeft"}, "11": {"Z"}, "12": {"S"}, "13": {"X"}, "14": {"D"},
		"15": {"C"}, "18": {"F"}, "19": {"V"}, "17": {"Space"},
		"21": {"M"}, "22": {"K"}, "23": {"Comma"}, "24": {"L"}, "25": {"Period"},
		"28": {"Semicolon"}, "29": {"Slash"}, "26": {"ShiftRight"}, "27": {"Enter"},
	},
	SpeedUp:   []string{"F4"},
	SpeedDown: []string{"F3"},
	Quit:      []string{"Escape"},
}

type Map struct {
	Lanes     map[ebiten.Key][]bms.Lane
	SpeedUp   []ebiten.Key
	SpeedDown []ebiten.Key
	Quit      []ebiten.Key
}

// Load reads a binding file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Map, error) {
	kf := defaultKeys
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var user keyFile
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		kf = mergeKeys(kf, user)
	}
	return kf.compile()
}

func mergeKeys(base, over keyFile) keyFile {
	lanes := make(map[string][]string, len(base.Lanes)+len(over.Lanes))
	for ch, keys := range base.Lanes {
		lanes[ch] = keys
	}
	for ch, keys := range over.Lanes {
		lanes[ch] = keys
	}
	base.Lanes = lanes
	if over.SpeedUp != nil {
		base.SpeedUp = over.SpeedUp
	}
	if over.SpeedDown != nil {
		base.SpeedDown = over.SpeedDown
	}
	if over.Quit != nil {
		base.Quit = over.Quit
	}
	return base
}

func (kf keyFile) compile() (*Map, error) {
	km := &Map{Lanes: make(map[ebiten.Key][]bms.Lane)}
	for ch, names := range kf.Lanes {
		k, ok := bms.ParseKey(ch)
		if !ok || len(ch) != 2 || k < 36 || k >= 3*36 {
			return nil, fmt.Errorf("invalid lane %q", ch)
		}
		keys, err := parseKeys(names)
		if err != nil {
			return nil, fmt.Errorf("lane %s: %w", ch, err)
		}
		for _, key := range keys {
			km.Lanes[key] = append(km.Lanes[key], bms.LaneFromChannel(k))
		}
	}
	var err error
	if km.SpeedUp, err = parseKeys(kf.SpeedUp); err != nil {
		return nil, fmt.Errorf("speed_up: %w", err)
	}
	if km.SpeedDown, err = parseKeys(kf.SpeedDown); err != nil {
		return nil, fmt.Errorf("speed_down: %w", err)
	}
	if km.Quit, err = parseKeys(kf.Quit); err != nil {
		return nil, fmt.Errorf("quit: %w", err)
	}
	return km, nil
}

func parseKeys(names []string) ([]ebiten.Key, error) {
	keys := make([]ebiten.Key, 0, len(names))
	for _, name := range names {
		var k ebiten.Key
		if err := k.UnmarshalText([]byte(name)); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
