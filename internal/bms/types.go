package bms

import (
	"fmt"
	"math"
)

// Lane is an input/display column. Lanes 0..35 belong to the first side and
// 36..71 to the second.
type Lane int

const NumLanes = 72

// LaneFromChannel maps an object channel (1x/2x, 3x/4x, 5x/6x, Dx/Ex) to its lane.
func LaneFromChannel(ch Key) Lane {
	player := 0
	switch int(ch) / 36 {
	case 1, 3, 5, 0xD:
		player = 0
	case 2, 4, 6, 0xE:
		player = 1
	default:
		panic(fmt.Sprintf("bms: channel %s has no lane", ch))
	}
	return Lane(player*36 + int(ch)%36)
}

// Channel returns the visible-object channel for the lane.
func (l Lane) Channel() Key { return Key(36 + int(l)) }

// BPM is a tempo in beats per minute. Negative values reverse the chart.
type BPM float64

const DefaultBPM BPM = 130

func (b BPM) MeasureToMsec(measure float64) float64 { return measure * 240000 / float64(b) }
func (b BPM) MsecToMeasure(msec float64) float64    { return msec * float64(b) / 240000 }

type DurationUnit int

const (
	Seconds DurationUnit = iota
	Measures
)

type Duration struct {
	Unit  DurationUnit
	Value float64
}

// Msec converts the duration to milliseconds at the given tempo.
func (d Duration) Msec(bpm BPM) float64 {
	if d.Unit == Measures {
		return bpm.MeasureToMsec(d.Value)
	}
	return d.Value * 1000
}

// Damage is applied to the gauge when a bomb is hit.
type Damage struct {
	Ratio        float64
	InstantDeath bool
}

type BGALayer int

const (
	Layer1 BGALayer = iota
	Layer2
	Layer3
	PoorBGA

	NumLayers = 4
)

type Kind int

const (
	Deleted Kind = iota
	Visible
	Invisible
	LNStart
	LNDone
	Bomb
	BGM
	SetBGA
	SetBPM
	Stop
)

var kindNames = [...]string{"Deleted", "Visible", "Invisible", "LNStart", "LNDone", "Bomb", "BGM", "SetBGA", "SetBPM", "Stop"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Obj is a single timeline event. Which fields are meaningful depends on Kind:
// object kinds use Lane and Sound (Bomb also Damage), BGM uses Sound, SetBGA
// uses Layer and Image, SetBPM uses BPM and Stop uses Duration.
type Obj struct {
	Time     float64
	Kind     Kind
	Lane     Lane
	Sound    Key
	Damage   Damage
	Layer    BGALayer
	Image    Key
	BPM      BPM
	Duration Duration
}

func NewVisible(t float64, lane Lane, sound Key) Obj {
	return Obj{Time: t, Kind: Visible, Lane: lane, Sound: sound, Image: NoKey}
}

func NewInvisible(t float64, lane Lane, sound Key) Obj {
	return Obj{Time: t, Kind: Invisible, Lane: lane, Sound: sound, Image: NoKey}
}

func NewLNStart(t float64, lane Lane, sound Key) Obj {
	return Obj{Time: t, Kind: LNStart, Lane: lane, Sound: sound, Image: NoKey}
}

func NewLNDone(t float64, lane Lane, sound Key) Obj {
	return Obj{Time: t, Kind: LNDone, Lane: lane, Sound: sound, Image: NoKey}
}

func NewBomb(t float64, lane Lane, sound Key, damage Damage) Obj {
	return Obj{Time: t, Kind: Bomb, Lane: lane, Sound: sound, Damage: damage, Image: NoKey}
}

func NewBGM(t float64, sound Key) Obj {
	return Obj{Time: t, Kind: BGM, Sound: sound, Image: NoKey}
}

func NewSetBGA(t float64, layer BGALayer, image Key) Obj {
	return Obj{Time: t, Kind: SetBGA, Layer: layer, Image: image, Sound: NoKey}
}

func NewSetBPM(t float64, bpm BPM) Obj {
	return Obj{Time: t, Kind: SetBPM, BPM: bpm, Sound: NoKey, Image: NoKey}
}

func NewStop(t float64, d Duration) Obj {
	return Obj{Time: t, Kind: Stop, Duration: d, Sound: NoKey, Image: NoKey}
}

// Measure returns the measure number containing the object.
func (o Obj) Measure() int { return int(math.Floor(o.Time)) }

func (o Obj) IsVisible() bool   { return o.Kind == Visible }
func (o Obj) IsInvisible() bool { return o.Kind == Invisible }
func (o Obj) IsLNStart() bool   { return o.Kind == LNStart }
func (o Obj) IsLNDone() bool    { return o.Kind == LNDone }
func (o Obj) IsLN() bool        { return o.Kind == LNStart || o.Kind == LNDone }
func (o Obj) IsBomb() bool      { return o.Kind == Bomb }
func (o Obj) IsBGM() bool       { return o.Kind == BGM }
func (o Obj) IsSetBGA() bool    { return o.Kind == SetBGA }
func (o Obj) IsSetBPM() bool    { return o.Kind == SetBPM }
func (o Obj) IsStop() bool      { return o.Kind == Stop }

// IsObject reports whether the event lives in a lane.
func (o Obj) IsObject() bool {
	switch o.Kind {
	case Visible, Invisible, LNStart, LNDone, Bomb:
		return true
	}
	return false
}

func (o Obj) IsSoundable() bool {
	switch o.Kind {
	case Visible, Invisible, LNStart, LNDone:
		return true
	}
	return false
}

func (o Obj) IsGradable() bool {
	switch o.Kind {
	case Visible, LNStart, LNDone:
		return true
	}
	return false
}

func (o Obj) IsRenderable() bool {
	switch o.Kind {
	case Visible, LNStart, LNDone, Bomb:
		return true
	}
	return false
}

// ObjectLane returns the lane of a lane-bound event.
func (o Obj) ObjectLane() (Lane, bool) {
	if !o.IsObject() {
		return 0, false
	}
	return o.Lane, true
}

// Sounds returns every sound the event may trigger.
func (o Obj) Sounds() []Key {
	switch o.Kind {
	case Visible, Invisible, LNStart, LNDone, Bomb, BGM:
		if o.Sound != NoKey {
			return []Key{o.Sound}
		}
	}
	return nil
}

// KeyDownSound is the sound played when the lane's key is pressed on the object.
func (o Obj) KeyDownSound() (Key, bool) {
	switch o.Kind {
	case Visible, Invisible, LNStart:
		return o.Sound, o.Sound != NoKey
	}
	return NoKey, false
}

// KeyUpSound is the sound played when the lane's key is released on the object.
func (o Obj) KeyUpSound() (Key, bool) {
	if o.Kind == LNDone {
		return o.Sound, o.Sound != NoKey
	}
	return NoKey, false
}

// ThroughSound is the sound played when a held key passes over a bomb.
func (o Obj) ThroughSound() (Key, bool) {
	if o.Kind == Bomb {
		return o.Sound, o.Sound != NoKey
	}
	return NoKey, false
}

func (o Obj) ThroughDamage() (Damage, bool) {
	if o.Kind == Bomb {
		return o.Damage, true
	}
	return Damage{}, false
}

// Images returns the image the event displays, if any.
func (o Obj) Images() []Key {
	if o.Kind == SetBGA && o.Image != NoKey {
		return []Key{o.Image}
	}
	return nil
}

func (o Obj) withKind(k Kind) Obj {
	if !o.IsObject() {
		return o
	}
	return Obj{Time: o.Time, Kind: k, Lane: o.Lane, Sound: o.Sound, Image: NoKey}
}

func (o Obj) ToVisible() Obj   { return o.withKind(Visible) }
func (o Obj) ToInvisible() Obj { return o.withKind(Invisible) }
func (o Obj) ToLNStart() Obj   { return o.withKind(LNStart) }
func (o Obj) ToLNDone() Obj    { return o.withKind(LNDone) }

// demote turns a note into background music of its sound, or deletes the event.
func (o Obj) demote() Obj {
	if o.IsSoundable() && o.Sound != NoKey {
		return NewBGM(o.Time, o.Sound)
	}
	return Obj{Time: o.Time, Kind: Deleted, Sound: NoKey, Image: NoKey}
}

// BlitCmd copies the rectangle (X1,Y1)-(X2,Y2) of image Src to (DX,DY) of
// image Dst after images are loaded.
type BlitCmd struct {
	Dst, Src       Key
	X1, Y1, X2, Y2 int
	DX, DY         int
}

const (
	SinglePlay = 1
	CouplePlay = 2
	DoublePlay = 3
	BattlePlay = 4
)

// Chart is a compiled chart. It is mutated by Sanitize, Compact and
// ApplyModifier and read-only afterwards.
type Chart struct {
	Title     string
	Genre     string
	Artist    string
	StageFile string
	BasePath  string

	Player    int
	PlayLevel int
	Rank      int

	InitialBPM BPM

	SoundPaths []string
	ImagePaths []string
	Blits      []BlitCmd

	Objs        []Obj
	Shortens    []float64
	NumMeasures int
}

func NewChart() *Chart {
	return &Chart{
		Player:     SinglePlay,
		Rank:       2,
		InitialBPM: DefaultBPM,
		SoundPaths: make([]string, MaxKey),
		ImagePaths: make([]string, MaxKey),
	}
}
