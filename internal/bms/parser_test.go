package bms

import (
	"math"
	"strings"
	"testing"
	"testing/iotest"

	"golang.org/x/text/encoding/japanese"
)

func objsOfKind(c *Chart, kind Kind) []Obj {
	var out []Obj
	for _, o := range c.Objs {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func TestParseHeaders(t *testing.T) {
	src := strings.Join([]string{
		"#TITLE  Hello World  ",
		"#genre Test",
		"  #ARTIST someone",
		"#bpm 150",
		"#PLAYER 3",
		"#PLAYLEVEL 7",
		"#RANK 3garbage",
		"#WAV01 kick.wav",
		"#WAV02",
		"#BMP0A back.bmp",
		"#BGA02 01 0 0 10 10 5 5",
		"#BGA03 01 0 0",
		"not a directive",
	}, "\r\n")
	c := ParseString(src, nil)
	if c.Title != "Hello World" || c.Genre != "Test" || c.Artist != "someone" {
		t.Fatalf("unexpected metadata %q %q %q", c.Title, c.Genre, c.Artist)
	}
	if c.InitialBPM != 150 || c.Player != 3 || c.PlayLevel != 7 || c.Rank != 3 {
		t.Fatalf("unexpected values bpm=%v player=%d level=%d rank=%d", c.InitialBPM, c.Player, c.PlayLevel, c.Rank)
	}
	if c.SoundPaths[1] != "kick.wav" || c.SoundPaths[2] != "" {
		t.Fatalf("unexpected sound paths %q %q", c.SoundPaths[1], c.SoundPaths[2])
	}
	if c.ImagePaths[10] != "back.bmp" {
		t.Fatalf("unexpected image path %q", c.ImagePaths[10])
	}
	want := BlitCmd{Dst: 2, Src: 1, X2: 10, Y2: 10, DX: 5, DY: 5}
	if len(c.Blits) != 1 || c.Blits[0] != want {
		t.Fatalf("expected one blit %+v, got %+v", want, c.Blits)
	}
}

func TestParseDefaults(t *testing.T) {
	c := ParseString("", nil)
	if c.InitialBPM != DefaultBPM || c.Player != SinglePlay || c.Rank != 2 {
		t.Fatalf("unexpected defaults bpm=%v player=%d rank=%d", c.InitialBPM, c.Player, c.Rank)
	}
	if c.NumMeasures != 1 {
		t.Fatalf("expected 1 measure, got %d", c.NumMeasures)
	}
	bga := objsOfKind(c, SetBGA)
	if len(bga) != 1 || bga[0].Layer != PoorBGA || bga[0].Image != 0 || bga[0].Time != 0 {
		t.Fatalf("expected a poor BGA at origin, got %+v", bga)
	}
}

func TestParseReadError(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	if _, err := p.Parse(iotest.ErrReader(iotest.ErrTimeout)); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestParseShiftJIS(t *testing.T) {
	src, err := japanese.ShiftJIS.NewEncoder().String("#TITLE テスト\n#00111:01\n")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	c, err := NewParser(DefaultParserConfig()).Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Title != "テスト" {
		t.Fatalf("expected decoded title, got %q", c.Title)
	}
}

func TestParseRandomBlock(t *testing.T) {
	src := strings.Join([]string{
		"#BPM 120",
		"#00102:0000000000000000",
		"#RANDOM 2",
		"#IF 1",
		"#00103:3C",
		"#ENDIF",
		"#ENDRANDOM",
	}, "\n")
	for _, tc := range []struct {
		draw int
		want int
	}{{0, 1}, {1, 0}} {
		c := ParseString(src, &scriptedRand{values: []int{tc.draw}})
		bpms := objsOfKind(c, SetBPM)
		if len(bpms) != tc.want {
			t.Fatalf("draw %d: expected %d BPM changes, got %d", tc.draw+1, tc.want, len(bpms))
		}
		if tc.want == 1 && bpms[0].BPM != 60 {
			t.Fatalf("expected BPM 60, got %v", bpms[0].BPM)
		}
		if len(c.Shortens) != 0 {
			t.Fatalf("expected a zero scaling factor to be ignored, got %v", c.Shortens)
		}
	}
}

func TestParseSkipsHeadersInInactiveBlock(t *testing.T) {
	src := "#SETRANDOM 2\n#IF 1\n#TITLE wrong\n#WAV01 a.wav\n#ELSE\n#TITLE right\n#ENDIF\n"
	c := ParseString(src, nil)
	if c.Title != "right" || c.SoundPaths[1] != "" {
		t.Fatalf("expected only the #ELSE clause, got title=%q wav=%q", c.Title, c.SoundPaths[1])
	}
}

func TestParseEndpointLongNote(t *testing.T) {
	c := ParseString("#00151:5A\n#00251:5A\n", nil)
	Sanitize(c)
	starts, dones := objsOfKind(c, LNStart), objsOfKind(c, LNDone)
	if len(starts) != 1 || len(dones) != 1 {
		t.Fatalf("expected one long note, got %d starts and %d ends", len(starts), len(dones))
	}
	if starts[0].Time != 1 || dones[0].Time != 2 || starts[0].Lane != 1 || dones[0].Lane != 1 {
		t.Fatalf("unexpected long note %+v -> %+v", starts[0], dones[0])
	}
	if len(objsOfKind(c, Visible)) != 0 {
		t.Fatalf("expected no plain notes")
	}
}

func TestParseEndpointLongNoteUnterminated(t *testing.T) {
	c := ParseString("#00151:5A\n#00311:01\n", nil)
	dones := objsOfKind(c, LNDone)
	if len(dones) != 1 || dones[0].Time != 4 || dones[0].Sound != NoKey {
		t.Fatalf("expected a silent end at measure 4, got %+v", dones)
	}
}

func TestParseAreaLongNoteMerges(t *testing.T) {
	c := ParseString("#LNTYPE 2\n#00151:5A5A\n", nil)
	Sanitize(c)
	starts, dones := objsOfKind(c, LNStart), objsOfKind(c, LNDone)
	if len(starts) != 1 || len(dones) != 1 {
		t.Fatalf("expected one merged long note, got %d starts and %d ends", len(starts), len(dones))
	}
	if starts[0].Time != 1 || dones[0].Time != 2 {
		t.Fatalf("expected long note over [1, 2), got [%v, %v)", starts[0].Time, dones[0].Time)
	}
}

func TestParseAreaLongNoteSeparated(t *testing.T) {
	c := ParseString("#LNTYPE 2\n#00151:5A005A00\n", nil)
	if n := len(objsOfKind(c, LNStart)); n != 2 {
		t.Fatalf("expected two long notes, got %d", n)
	}
}

func TestParseLNObj(t *testing.T) {
	c := ParseString("#LNOBJ ZZ\n#00111:01ZZ\n#00112:ZZ\n", nil)
	starts, dones := objsOfKind(c, LNStart), objsOfKind(c, LNDone)
	if len(starts) != 1 || starts[0].Time != 1 || starts[0].Sound != 1 {
		t.Fatalf("expected LN start at 1, got %+v", starts)
	}
	if len(dones) != 1 || dones[0].Time != 1.5 || dones[0].Sound != MaxKey-1 {
		t.Fatalf("expected LN end at 1.5, got %+v", dones)
	}
	if len(objsOfKind(c, Visible)) != 0 {
		t.Fatalf("expected the marker without a note to be dropped")
	}
}

func TestParseLNObjUnterminated(t *testing.T) {
	c := ParseString("#LNOBJ ZZ\n#00211:01\n", nil)
	dones := objsOfKind(c, LNDone)
	if len(dones) != 1 || dones[0].Time != 3 {
		t.Fatalf("expected a closing LN end at measure 3, got %+v", dones)
	}
}

func TestParseBombs(t *testing.T) {
	c := ParseString("#001D1:0AZZ00C9\n", nil)
	bombs := objsOfKind(c, Bomb)
	if len(bombs) != 2 {
		t.Fatalf("expected 2 bombs, got %d", len(bombs))
	}
	if bombs[0].Damage.Ratio != 0.05 || bombs[0].Sound != 0 || bombs[0].Lane != 1 {
		t.Fatalf("unexpected first bomb %+v", bombs[0])
	}
	if !bombs[1].Damage.InstantDeath || bombs[1].Time != 1.25 {
		t.Fatalf("unexpected second bomb %+v", bombs[1])
	}
}

func TestParseChannels(t *testing.T) {
	src := strings.Join([]string{
		"#BPM01 150.5",
		"#STOP01 96",
		"#STP002.500 1500",
		"#STP003.000 0",
		"#00101:02",
		"#00103:ZZ",
		"#00104:03",
		"#00106:04",
		"#00107:05",
		"#0010A:06",
		"#00108:0102",
		"#00109:01",
		"#00202:0.75",
		"#00131:07",
		"#00241:08",
		"#00199:01",
	}, "\n")
	c := ParseString(src, nil)

	bgm := objsOfKind(c, BGM)
	if len(bgm) != 1 || bgm[0].Sound != 2 {
		t.Fatalf("unexpected BGM %+v", bgm)
	}
	bpms := objsOfKind(c, SetBPM)
	if len(bpms) != 2 || bpms[0].BPM != 150.5 || bpms[1].BPM != DefaultBPM || bpms[1].Time != 1.5 {
		t.Fatalf("unexpected BPM changes %+v", bpms)
	}
	layers := map[BGALayer]Key{}
	for _, o := range objsOfKind(c, SetBGA) {
		layers[o.Layer] = o.Image
	}
	want := map[BGALayer]Key{Layer1: 3, PoorBGA: 4, Layer2: 5, Layer3: 6}
	for layer, img := range want {
		if layers[layer] != img {
			t.Fatalf("layer %d: expected image %d, got %d", layer, img, layers[layer])
		}
	}
	if n := len(objsOfKind(c, SetBGA)); n != 4 {
		t.Fatalf("expected no synthetic poor BGA, got %d BGA changes", n)
	}
	stops := objsOfKind(c, Stop)
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %+v", stops)
	}
	if stops[0].Time != 2.5 || stops[0].Duration != (Duration{Unit: Seconds, Value: 1.5}) {
		t.Fatalf("unexpected #STP stop %+v", stops[0])
	}
	if stops[1].Time != 1 || stops[1].Duration != (Duration{Unit: Measures, Value: 0.5}) {
		t.Fatalf("unexpected channel stop %+v", stops[1])
	}
	if len(c.Shortens) != 3 || c.Shortens[0] != 1 || c.Shortens[2] != 0.75 {
		t.Fatalf("unexpected scaling factors %v", c.Shortens)
	}
	inv := objsOfKind(c, Invisible)
	if len(inv) != 2 || inv[0].Lane != 1 || inv[1].Lane != 37 {
		t.Fatalf("unexpected invisible notes %+v", inv)
	}
	if c.NumMeasures != 3 {
		t.Fatalf("expected 3 measures, got %d", c.NumMeasures)
	}
}

func TestParseReplaysInMeasureOrder(t *testing.T) {
	c := ParseString("#LNOBJ ZZ\n#00211:ZZ\n#00111:01\n", nil)
	if n := len(objsOfKind(c, LNStart)); n != 1 {
		t.Fatalf("expected measure 1 to be replayed before measure 2, got %d LN starts", n)
	}
}

func TestParseOddTokenCount(t *testing.T) {
	c := ParseString("#00111:01020\n", nil)
	vis := objsOfKind(c, Visible)
	if len(vis) != 2 || vis[1].Time != 1.5 {
		t.Fatalf("expected the trailing character to be dropped, got %+v", vis)
	}
}

func TestParseIgnoresZeroBPM(t *testing.T) {
	src := strings.Join([]string{
		"#BPM 0",
		"#BPM01 0",
		"#BPM02 -60",
		"#00108:0102",
		"#00111:01",
	}, "\n")
	c := ParseString(src, nil)
	if c.InitialBPM != DefaultBPM {
		t.Fatalf("expected BPM %v, got %v", DefaultBPM, c.InitialBPM)
	}
	bpms := objsOfKind(c, SetBPM)
	if len(bpms) != 1 || bpms[0].BPM != -60 || bpms[0].Time != 1.5 {
		t.Fatalf("expected only the negative BPM change, got %+v", bpms)
	}

	c = ParseString("#BPM -10\n#00111:01\n", nil)
	if c.InitialBPM != DefaultBPM {
		t.Fatalf("expected a negative initial BPM to be ignored, got %v", c.InitialBPM)
	}
	want := 2 * DefaultBPM.MeasureToMsec(1) / 1000
	if got := PlayDuration(c, 0, nil); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
