package sequencer

import (
	"math"
	"time"

	"github.com/cbegin/bmsplay-go/internal/bms"
)

// SoundSink plays chart sounds. Play is called with bgm set for background
// sounds and cleared for key sounds.
type SoundSink interface {
	Play(sound bms.Key, bgm bool)
	// Playing reports whether any background sound is still audible. Used to
	// let the tail of the chart finish after the last measure.
	Playing() bool
}

// Input is a lane key transition.
type Input struct {
	Lane    bms.Lane
	Pressed bool
}

// EventKind identifies sequencer events.
type EventKind int

const (
	EventGraded EventKind = iota
	EventSpeedChanged
	EventPlaybackEnded
)

// Event is reported through Options.OnEvent.
type Event struct {
	Kind  EventKind
	Grade Grade
	// Obj is the index of the graded event in the chart, -1 when none.
	Obj   int
	Speed float64
}

type Options struct {
	Autoplay bool
	// PlaySpeed scales the visible window. Zero means 1.
	PlaySpeed float64
	OnEvent   func(Event)
}

// State is the per-tick view of the sequencer used by renderers.
type State struct {
	// Now is the wall time in milliseconds since play started.
	Now       float64
	Position  float64
	Line      float64
	Top       float64
	BPM       bms.BPM
	PlaySpeed float64
	BGA       [bms.NumLayers]bms.Key

	LastGrade   Grade
	LastGradeAt float64
	HasGrade    bool

	Tally Tally
}

// speedMarks are the play speeds reachable with SpeedUp and SpeedDown.
var speedMarks = []float64{
	0.1, 0.2, 0.4, 0.6, 0.8, 1, 1.2, 1.5, 2, 2.5, 3, 3.5, 4, 4.5,
	5, 5.5, 6, 7, 8, 10, 15, 25, 40, 60, 99,
}

// Sequencer drives one play of a compacted chart. It is not safe for
// concurrent use; call Tick from the game loop.
type Sequencer struct {
	chart *bms.Chart
	info  bms.Info
	sink  SoundSink
	opts  Options

	started bool
	ended   bool
	start   float64
	now     float64
	clock   Clock

	playSpeed   float64
	targetSpeed float64
	changing    bool

	bottom float64
	line   float64
	top    float64

	front Pointer
	cur   Pointer
	check Pointer
	thru  [bms.NumLanes]*Pointer

	graded      []bool
	gradeFactor float64
	held        [bms.NumLanes]int
	bga         [bms.NumLayers]bms.Key

	tally       Tally
	lastGrade   Grade
	lastGradeAt float64
	hasGrade    bool
}

func New(chart *bms.Chart, sink SoundSink) *Sequencer {
	return NewWithOptions(chart, sink, Options{})
}

func NewWithOptions(chart *bms.Chart, sink SoundSink, opts Options) *Sequencer {
	if opts.PlaySpeed <= 0 {
		opts.PlaySpeed = 1
	}
	info := bms.Analyze(chart)
	origin := info.OriginOffset
	s := &Sequencer{
		chart:       chart,
		info:        info,
		sink:        sink,
		opts:        opts,
		playSpeed:   opts.PlaySpeed,
		bottom:      origin,
		line:        origin,
		top:         origin,
		front:       NewPointer(chart),
		cur:         NewPointer(chart),
		check:       NewPointer(chart),
		graded:      make([]bool, len(chart.Objs)),
		gradeFactor: GradeFactor(chart.Rank),
		bga:         [bms.NumLayers]bms.Key{bms.NoKey, bms.NoKey, bms.NoKey, 0},
		tally:       NewTally(info.NumNotes),
	}
	s.clock = NewClock(chart.InitialBPM, 0, origin, chart.Shorten(int(origin)))
	return s
}

func (s *Sequencer) Chart() *bms.Chart { return s.chart }
func (s *Sequencer) Info() bms.Info    { return s.info }
func (s *Sequencer) Tally() Tally      { return s.tally }
func (s *Sequencer) Autoplay() bool    { return s.opts.Autoplay }

// Held reports whether a lane key is down.
func (s *Sequencer) Held(lane bms.Lane) bool { return s.held[lane] > 0 }

// Cursor returns a pointer at the first event at or after the bottom of the
// screen. Renderers scan forward from it up to State.Top.
func (s *Sequencer) Cursor() Pointer { return pointerAt(s.chart, s.front.pos) }

// ReachedEnd reports whether every gradable event has been reached.
func (s *Sequencer) ReachedEnd() bool {
	_, ok := s.cur.FindNext(func(o *bms.Obj) bool { return o.IsGradable() })
	return !ok
}

func (s *Sequencer) State() State {
	return State{
		Now:         s.now - s.start,
		Position:    s.bottom,
		Line:        s.line,
		Top:         s.top,
		BPM:         s.clock.BPM(),
		PlaySpeed:   s.NominalSpeed(),
		BGA:         s.bga,
		LastGrade:   s.lastGrade,
		LastGradeAt: s.lastGradeAt - s.start,
		HasGrade:    s.hasGrade,
		Tally:       s.tally,
	}
}

// NominalSpeed is the play speed being approached.
func (s *Sequencer) NominalSpeed() float64 {
	if s.changing {
		return s.targetSpeed
	}
	return s.playSpeed
}

// SpeedUp targets the next faster speed mark.
func (s *Sequencer) SpeedUp() bool {
	cur := s.NominalSpeed()
	for _, m := range speedMarks {
		if m > cur+0.001 {
			s.setTargetSpeed(m)
			return true
		}
	}
	return false
}

// SpeedDown targets the next slower speed mark.
func (s *Sequencer) SpeedDown() bool {
	cur := s.NominalSpeed()
	for i := len(speedMarks) - 1; i >= 0; i-- {
		if speedMarks[i] < cur-0.001 {
			s.setTargetSpeed(speedMarks[i])
			return true
		}
	}
	return false
}

func (s *Sequencer) setTargetSpeed(v float64) {
	s.targetSpeed = v
	s.changing = true
	s.emit(Event{Kind: EventSpeedChanged, Obj: -1, Speed: v})
}

func (s *Sequencer) emit(ev Event) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(ev)
	}
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Tick advances play to wall time now and applies the given lane inputs. It
// returns false once play has ended.
func (s *Sequencer) Tick(now time.Duration, inputs []Input) bool {
	if s.ended {
		return false
	}
	if !s.started {
		s.started = true
		s.start = msec(now)
		s.clock.wall = s.start
	}
	s.now = msec(now)

	if s.changing {
		delta := s.targetSpeed - s.playSpeed
		if abs(delta) < 0.001 {
			s.playSpeed = s.targetSpeed
			s.changing = false
		} else {
			s.playSpeed += delta * 0.1
		}
	}

	s.bottom = s.clock.Advance(s.now)
	measure := int(math.Floor(s.bottom))
	if measure >= -1 && float64(measure) >= s.clock.Offset() {
		if shorten := s.chart.Shorten(measure); shorten != s.clock.Shorten() {
			s.clock.SetShorten(float64(measure), shorten)
		}
	}
	s.line = s.bottom
	s.top = s.chart.AdjustTime(s.bottom, 1.25/s.playSpeed)

	s.front.SeekUntil(s.bottom)
	prev := pointerAt(s.chart, s.cur.pos)
	s.cur.Reset()
	s.applyEffects()

	if !s.opts.Autoplay {
		for _, in := range inputs {
			if in.Lane < 0 || in.Lane >= bms.NumLanes {
				continue
			}
			if in.Pressed {
				s.held[in.Lane]++
				if s.held[in.Lane] == 1 {
					s.press(in.Lane)
				}
			} else if s.held[in.Lane] > 0 {
				s.held[in.Lane]--
				if s.held[in.Lane] == 0 {
					s.release(in.Lane)
				}
			}
		}
		if !s.passBombs(&prev) {
			return s.end()
		}
		s.sweepMisses()
	}

	if s.bottom > float64(s.chart.NumMeasures+1) {
		if s.sink != nil && s.sink.Playing() {
			return true
		}
		return s.end()
	}
	if s.bottom < s.info.OriginOffset {
		return s.end()
	}
	return true
}

func (s *Sequencer) end() bool {
	s.ended = true
	s.emit(Event{Kind: EventPlaybackEnded, Obj: -1})
	return false
}

func (s *Sequencer) play(sound bms.Key, bgm bool) {
	if s.sink != nil && sound != bms.NoKey {
		s.sink.Play(sound, bgm)
	}
}

func (s *Sequencer) applyEffects() {
	for s.cur.NextUntil(s.line) {
		o := s.cur.Obj()
		switch o.Kind {
		case bms.BGM:
			if o.Sound != 0 {
				s.play(o.Sound, true)
			}
		case bms.SetBGA:
			s.bga[o.Layer] = o.Image
		case bms.SetBPM:
			s.clock.SetBPM(o.Time, o.BPM)
		case bms.Stop:
			s.clock.Stop(o.Time, o.Duration.Msec(s.clock.BPM()), s.now, s.chart.Shorten(int(math.Floor(o.Time))))
		case bms.Visible, bms.LNStart:
			if s.opts.Autoplay {
				if o.Sound != 0 {
					s.play(o.Sound, false)
				}
				s.grade(s.cur.pos, 0)
			}
		}
	}
}

func (s *Sequencer) grade(pos int, dist float64) {
	g := s.tally.RecordDistance(dist)
	s.graded[pos] = true
	s.noteGrade(g, pos)
}

func (s *Sequencer) noteGrade(g Grade, pos int) {
	s.lastGrade = g
	s.lastGradeAt = s.now
	s.hasGrade = true
	s.emit(Event{Kind: EventGraded, Grade: g, Obj: pos})
}

func inLane(lane bms.Lane, pred func(*bms.Obj) bool) func(*bms.Obj) bool {
	return func(o *bms.Obj) bool {
		l, ok := o.ObjectLane()
		return ok && l == lane && pred(o)
	}
}

func (s *Sequencer) press(lane bms.Lane) {
	soundable := inLane(lane, func(o *bms.Obj) bool { return o.IsSoundable() })
	if p, ok := s.cur.FindClosest(s.line, soundable); ok {
		for _, sound := range p.Obj().Sounds() {
			s.play(sound, false)
		}
	}

	gradable := inLane(lane, func(o *bms.Obj) bool { return o.IsGradable() })
	p, ok := s.cur.FindClosest(s.line, gradable)
	if !ok || p.pos < s.check.pos || s.graded[p.pos] || p.Obj().IsLNDone() {
		return
	}
	lineShorten := s.chart.Shorten(int(math.Floor(s.line)))
	dist := s.clock.BPM().MeasureToMsec(p.Time()-s.line) * lineShorten * s.gradeFactor
	if abs(dist) >= BadCutoff {
		return
	}
	if p.Obj().IsLNStart() {
		held := p
		s.thru[lane] = &held
	}
	s.grade(p.pos, dist)
}

func (s *Sequencer) release(lane bms.Lane) {
	thru := s.thru[lane]
	if thru == nil {
		return
	}
	s.thru[lane] = nil
	done, ok := thru.FindNext(inLane(lane, func(o *bms.Obj) bool { return o.IsLNDone() }))
	if !ok {
		return
	}
	lineShorten := s.chart.Shorten(int(math.Floor(s.line)))
	dist := s.clock.BPM().MeasureToMsec(done.Time()-s.line) * lineShorten * s.gradeFactor
	s.graded[done.pos] = true
	if abs(dist) < BadCutoff {
		return
	}
	s.tally.RecordMiss()
	s.noteGrade(Miss, done.pos)
}

// passBombs applies the bombs passed this tick in held lanes. It returns
// false on instant death.
func (s *Sequencer) passBombs(prev *Pointer) bool {
	for prev.NextTo(&s.cur) {
		o := prev.Obj()
		if !o.IsBomb() || !s.Held(o.Lane) {
			continue
		}
		s.thru[o.Lane] = nil
		if sound, ok := o.ThroughSound(); ok {
			s.play(sound, false)
		}
		alive := s.tally.RecordDamage(o.Damage)
		s.noteGrade(Miss, prev.pos)
		if !alive {
			s.cur.SeekToEnd()
			return false
		}
	}
	return true
}

// sweepMisses grades every ungraded note that fell more than the BAD window
// behind the grading line.
func (s *Sequencer) sweepMisses() {
	s.check.Reset()
	for s.check.NextTo(&s.cur) {
		o := s.check.Obj()
		dist := s.clock.BPM().MeasureToMsec(s.line-o.Time) * s.chart.Shorten(o.Measure()) * s.gradeFactor
		if dist < BadCutoff {
			break
		}
		pos := s.check.pos
		if s.graded[pos] {
			continue
		}
		switch {
		case o.IsVisible(), o.IsLNStart():
		case o.IsLNDone() && s.thru[o.Lane] != nil:
			s.thru[o.Lane] = nil
		default:
			continue
		}
		s.graded[pos] = true
		s.tally.RecordMiss()
		s.noteGrade(Miss, pos)
	}
	s.check.Reset()
}
