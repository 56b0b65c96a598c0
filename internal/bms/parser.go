package bms

import (
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

type ParserConfig struct {
	// Rand drives #RANDOM. A nil Rand uses a PCG source seeded with Seed, or
	// with the current time when Seed is zero.
	Rand Rand
	Seed uint64
	// LegacyEncoding decodes charts that are not valid UTF-8.
	LegacyEncoding encoding.Encoding
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{LegacyEncoding: japanese.ShiftJIS}
}

type Parser struct{ cfg ParserConfig }

func NewParser(cfg ParserConfig) *Parser { return &Parser{cfg: cfg} }

func (p *Parser) rand() Rand {
	if p.cfg.Rand != nil {
		return p.cfg.Rand
	}
	seed := p.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Parse reads a whole chart. Malformed lines are skipped; only read errors are
// returned.
func (p *Parser) Parse(r io.Reader) (*Chart, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.ParseBytes(data), nil
}

func (p *Parser) ParseBytes(data []byte) *Chart {
	b := newBuilder(p.rand())
	for _, line := range strings.Split(decodeText(data, p.cfg.LegacyEncoding), "\n") {
		b.line(line)
	}
	return b.finish()
}

// Headers are matched case-insensitively in this order.
var headers = []string{
	"TITLE", "GENRE", "ARTIST", "STAGEFILE", "PATH_WAV", "BPM",
	"PLAYER", "PLAYLEVEL", "RANK", "LNTYPE", "LNOBJ", "WAV", "BMP",
	"BGA", "STOP", "STP", "RANDOM", "SETRANDOM", "ENDRANDOM", "IF",
	"ELSEIF", "ELSE", "ENDSW", "END",
}

type channelLine struct {
	measure int
	channel Key
	data    string
}

type builder struct {
	chart *Chart
	pp    *Preprocessor

	lines    []channelLine
	bpmTable []BPM
	stops    []Duration

	// #LNTYPE 2
	areaLN bool
	lnObj  Key

	poorBGAFix bool
	lastVis    [NumLanes]int
	lastLN     [NumLanes]int
}

func newBuilder(rng Rand) *builder {
	b := &builder{
		chart:      NewChart(),
		pp:         NewPreprocessor(rng),
		bpmTable:   make([]BPM, MaxKey),
		stops:      make([]Duration, MaxKey),
		lnObj:      NoKey,
		poorBGAFix: true,
	}
	for i := range b.bpmTable {
		b.bpmTable[i] = DefaultBPM
	}
	for i := range b.lastVis {
		b.lastVis[i] = -1
		b.lastLN[i] = -1
	}
	return b
}

func matchHeader(line string) (string, string) {
	for _, h := range headers {
		if len(line) >= len(h) && strings.EqualFold(line[:len(h)], h) {
			return h, line[len(h):]
		}
	}
	return "", line
}

func (b *builder) line(raw string) {
	line := trimWS(strings.TrimRight(raw, "\r"))
	if !strings.HasPrefix(line, "#") {
		return
	}
	prefix, rest := matchHeader(line[1:])
	c := b.chart

	switch prefix {
	case "RANDOM", "SETRANDOM":
		if n, ok := wsInt(rest); ok {
			if prefix == "RANDOM" {
				b.pp.Random(n)
			} else {
				b.pp.SetRandom(n)
			}
		}
		return
	case "ENDRANDOM":
		b.pp.EndRandom()
		return
	case "IF":
		if n, ok := wsInt(rest); ok {
			b.pp.If(n)
		}
		return
	case "ELSEIF":
		if n, ok := wsInt(rest); ok {
			b.pp.ElseIf(n)
		}
		return
	case "ELSE":
		b.pp.Else()
		return
	case "END":
		b.pp.End()
		return
	}
	if !b.pp.Active() {
		return
	}

	switch prefix {
	case "TITLE":
		if s, ok := wsText(rest); ok {
			c.Title = s
		}
	case "GENRE":
		if s, ok := wsText(rest); ok {
			c.Genre = s
		}
	case "ARTIST":
		if s, ok := wsText(rest); ok {
			c.Artist = s
		}
	case "STAGEFILE":
		if s, ok := wsText(rest); ok {
			c.StageFile = s
		}
	case "PATH_WAV":
		if s, ok := wsText(rest); ok {
			c.BasePath = s
		}
	case "BPM":
		if k, r, ok := scanKey(rest); ok {
			if r, ok := skipWS(r); ok {
				if v, _, ok := scanFloat(r); ok {
					b.bpmTable[k] = BPM(v)
				}
			}
		} else if r, ok := skipWS(rest); ok {
			if v, _, ok := scanFloat(r); ok && v > 0 {
				c.InitialBPM = BPM(v)
			}
		}
	case "PLAYER":
		if v, ok := wsInt(rest); ok {
			c.Player = v
		}
	case "PLAYLEVEL":
		if v, ok := wsInt(rest); ok {
			c.PlayLevel = v
		}
	case "RANK":
		if v, ok := wsInt(rest); ok {
			c.Rank = v
		}
	case "LNTYPE":
		if v, ok := wsInt(rest); ok {
			b.areaLN = v == 2
		}
	case "LNOBJ":
		if r, ok := skipWS(rest); ok {
			if k, _, ok := scanKey(r); ok {
				b.lnObj = k
			}
		}
	case "WAV":
		if k, path, ok := keyPath(rest); ok {
			c.SoundPaths[k] = path
		}
	case "BMP":
		if k, path, ok := keyPath(rest); ok {
			c.ImagePaths[k] = path
		}
	case "BGA":
		if bc, ok := parseBlit(rest); ok {
			c.Blits = append(c.Blits, bc)
		}
	case "STOP":
		if k, r, ok := scanKey(rest); ok {
			if r, ok := skipWS(r); ok {
				if v, _, ok := scanInt(r); ok {
					b.stops[k] = Duration{Unit: Measures, Value: float64(v) / 192}
				}
			}
		}
	case "STP":
		b.stp(rest)
	case "":
		b.channel(rest)
	}
}

func keyPath(s string) (Key, string, bool) {
	k, r, ok := scanKey(s)
	if !ok {
		return NoKey, "", false
	}
	path, ok := wsText(r)
	if !ok || path == "" {
		return NoKey, "", false
	}
	return k, path, true
}

func parseBlit(s string) (BlitCmd, bool) {
	var bc BlitCmd
	var ok bool
	if bc.Dst, s, ok = scanKey(s); !ok {
		return bc, false
	}
	if s, ok = skipWS(s); !ok {
		return bc, false
	}
	if bc.Src, s, ok = scanKey(s); !ok {
		return bc, false
	}
	for _, dst := range []*int{&bc.X1, &bc.Y1, &bc.X2, &bc.Y2, &bc.DX, &bc.DY} {
		if s, ok = skipWS(s); !ok {
			return bc, false
		}
		if *dst, s, ok = scanInt(s); !ok {
			return bc, false
		}
	}
	return bc, true
}

// #STPmmm.fff duration adds a stop of duration milliseconds at mmm + fff/1000.
func (b *builder) stp(s string) {
	measure, s, ok := scanMeasure(s)
	if !ok || !strings.HasPrefix(s, ".") {
		return
	}
	n := scanUintLen(s[1:])
	if n == 0 {
		return
	}
	frac, _, _ := scanInt(s[1 : 1+n])
	s, ok = skipWS(s[1+n:])
	if !ok {
		return
	}
	dur, _, ok := scanInt(s)
	if !ok || dur <= 0 {
		return
	}
	t := float64(measure) + float64(frac)/1000
	b.chart.Objs = append(b.chart.Objs, NewStop(t, Duration{Unit: Seconds, Value: float64(dur) / 1000}))
}

func (b *builder) channel(s string) {
	measure, s, ok := scanMeasure(s)
	if !ok {
		return
	}
	ch, s, ok := scanKey(s)
	if !ok || !strings.HasPrefix(s, ":") {
		return
	}
	data := strings.TrimSpace(s[1:])
	if data == "" {
		return
	}
	b.lines = append(b.lines, channelLine{measure: measure, channel: ch, data: data})
}

func (b *builder) add(o Obj) { b.chart.Objs = append(b.chart.Objs, o) }

func (b *builder) mark(o Obj) int {
	b.chart.Objs = append(b.chart.Objs, o)
	return len(b.chart.Objs) - 1
}

func (b *builder) finish() *Chart {
	c := b.chart
	sort.SliceStable(b.lines, func(i, j int) bool {
		if b.lines[i].measure != b.lines[j].measure {
			return b.lines[i].measure < b.lines[j].measure
		}
		return b.lines[i].channel < b.lines[j].channel
	})
	for _, l := range b.lines {
		if l.channel == 2 {
			b.shorten(l)
			continue
		}
		n := len(l.data) / 2 * 2
		count := float64(n)
		for i := 0; i < n; i += 2 {
			v, ok := ParseKey(l.data[i : i+2])
			if !ok || v == 0 {
				continue
			}
			t := float64(l.measure) + float64(i)/count
			t2 := float64(l.measure) + float64(i+2)/count
			b.handleKey(l.channel, t, t2, v)
		}
	}

	if b.poorBGAFix {
		b.add(NewSetBGA(0, PoorBGA, 0))
	}

	last := 0
	for _, l := range b.lines {
		if l.measure > last {
			last = l.measure
		}
	}
	c.NumMeasures = last + 1
	end := float64(c.NumMeasures)
	for i := 0; i < NumLanes; i++ {
		if b.lastVis[i] >= 0 || (!b.areaLN && b.lastLN[i] >= 0) {
			b.add(NewLNDone(end, Lane(i), NoKey))
		}
	}
	return c
}

func (b *builder) shorten(l channelLine) {
	v, _, ok := scanFloat(trimWS(l.data))
	if !ok || v <= 0.001 {
		return
	}
	c := b.chart
	for len(c.Shortens) <= l.measure {
		c.Shortens = append(c.Shortens, 1)
	}
	c.Shortens[l.measure] = v
}

func (b *builder) handleKey(ch Key, t, t2 float64, v Key) {
	c := b.chart
	switch {
	case ch == 1:
		b.add(NewBGM(t, v))
	case ch == 3:
		if hex, ok := v.Hex(); ok && hex != 0 {
			b.add(NewSetBPM(t, BPM(hex)))
		}
	case ch == 4:
		b.add(NewSetBGA(t, Layer1, v))
	case ch == 6:
		b.add(NewSetBGA(t, PoorBGA, v))
		b.poorBGAFix = false
	case ch == 7:
		b.add(NewSetBGA(t, Layer2, v))
	case ch == 8:
		// a zero tempo never reaches the next object
		if bpm := b.bpmTable[v]; bpm != 0 {
			b.add(NewSetBPM(t, bpm))
		}
	case ch == 9:
		b.add(NewStop(t, b.stops[v]))
	case ch == 10:
		b.add(NewSetBGA(t, Layer3, v))

	case ch >= 1*36 && ch < 3*36:
		lane := LaneFromChannel(ch)
		if b.lnObj != NoKey && v == b.lnObj {
			if pos := b.lastVis[lane]; pos >= 0 {
				c.Objs[pos] = c.Objs[pos].ToLNStart()
				b.add(NewLNDone(t, lane, v))
				b.lastVis[lane] = -1
			}
		} else {
			b.lastVis[lane] = b.mark(NewVisible(t, lane, v))
		}

	case ch >= 3*36 && ch < 5*36:
		b.add(NewInvisible(t, LaneFromChannel(ch), v))

	case ch >= 5*36 && ch < 7*36 && !b.areaLN:
		// successive keys alternate between the start and the end of an LN
		lane := LaneFromChannel(ch)
		if b.lastLN[lane] >= 0 {
			b.lastLN[lane] = -1
			b.add(NewLNDone(t, lane, v))
		} else {
			b.lastLN[lane] = b.mark(NewLNStart(t, lane, v))
		}

	case ch >= 5*36 && ch < 7*36:
		// every key is a whole LN over its slot, extending an LN ending right here
		lane := LaneFromChannel(ch)
		if pos := b.lastLN[lane]; pos >= 0 && c.Objs[pos].Time == t {
			c.Objs[pos].Time = t2
		} else {
			b.add(NewLNStart(t, lane, v))
			b.lastLN[lane] = b.mark(NewLNDone(t2, lane, v))
		}

	case ch >= 0xD*36 && ch < 0xF*36:
		var damage Damage
		switch {
		case v >= 1 && v <= 200:
			damage = Damage{Ratio: float64(v) / 200}
		case v == MaxKey-1:
			damage = Damage{InstantDeath: true}
		default:
			return
		}
		b.add(NewBomb(t, LaneFromChannel(ch), 0, damage))
	}
}

// ParseString parses an in-memory chart with the given random source.
func ParseString(s string, rng Rand) *Chart {
	cfg := DefaultParserConfig()
	cfg.Rand = rng
	return NewParser(cfg).ParseBytes([]byte(s))
}
