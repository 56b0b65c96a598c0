package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sqweek/dialog"

	"github.com/cbegin/bmsplay-go"
	"github.com/cbegin/bmsplay-go/internal/bms"
	"github.com/cbegin/bmsplay-go/internal/keymap"
	intseq "github.com/cbegin/bmsplay-go/internal/sequencer"
)

const (
	windowW = 800
	windowH = 600

	laneTop   = 30
	judgeLine = 520
	laneLeft  = 10
	bgaLeft   = windowW - 10 - bmsBGASize
	bgaTop    = 30

	bmsBGASize = 256

	// how long a grade stays on screen, in milliseconds
	gradeShown = 700
	// the poor BGA replaces the others this long after a MISS
	poorShown = 600
)

var (
	bgColor       = color.RGBA{16, 16, 24, 255}
	laneBgColor   = color.RGBA{0, 0, 0, 255}
	heldColor     = color.RGBA{64, 64, 96, 255}
	barColor      = color.RGBA{96, 96, 96, 255}
	judgeColor    = color.RGBA{255, 64, 64, 255}
	bombColor     = color.RGBA{255, 0, 0, 255}
	gaugeColor    = color.RGBA{255, 192, 0, 255}
	gaugeLowColor = color.RGBA{128, 128, 128, 255}
)

type laneStyle struct {
	width int
	color color.RGBA
}

var laneStyles = map[bms.KeyKind]laneStyle{
	bms.WhiteKey:    {30, color.RGBA{224, 224, 224, 255}},
	bms.WhiteKeyAlt: {30, color.RGBA{255, 255, 192, 255}},
	bms.BlackKey:    {25, color.RGBA{96, 128, 255, 255}},
	bms.Scratch:     {40, color.RGBA{255, 96, 96, 255}},
	bms.FootPedal:   {60, color.RGBA{96, 255, 96, 255}},
	bms.Button1:     {30, color.RGBA{224, 224, 224, 255}},
	bms.Button2:     {30, color.RGBA{255, 255, 96, 255}},
	bms.Button3:     {30, color.RGBA{96, 255, 96, 255}},
	bms.Button4:     {30, color.RGBA{96, 128, 255, 255}},
	bms.Button5:     {30, color.RGBA{255, 96, 96, 255}},
}

type laneColumn struct {
	lane  bms.Lane
	x     int
	style laneStyle
}

type game struct {
	song  *bmsplay.Song
	play  *bmsplay.Game
	keys  *keymap.Map
	lanes []laneColumn
	right int

	bga []*ebiten.Image

	started bool
	start   time.Time
	ended   bool
	result  bmsplay.Result
}

func newGame(song *bmsplay.Song, play *bmsplay.Game, keys *keymap.Map) *game {
	g := &game{song: song, play: play, keys: keys}
	x := laneLeft
	for i, lane := range song.KeySpec.Order {
		if i == song.KeySpec.Split && i > 0 {
			x += 10
		}
		style, ok := laneStyles[song.KeySpec.Kinds[lane]]
		if !ok {
			style = laneStyles[bms.WhiteKey]
		}
		g.lanes = append(g.lanes, laneColumn{lane: lane, x: x, style: style})
		x += style.width + 1
	}
	g.right = x

	g.bga = make([]*ebiten.Image, len(play.Images))
	for i, img := range play.Images {
		if img != nil {
			g.bga[i] = ebiten.NewImageFromImage(img)
		}
	}
	return g
}

func anyJustPressed(keys []ebiten.Key) bool {
	for _, k := range keys {
		if inpututil.IsKeyJustPressed(k) {
			return true
		}
	}
	return false
}

func (g *game) Update() error {
	if anyJustPressed(g.keys.Quit) {
		return ebiten.Termination
	}
	if g.ended {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			return ebiten.Termination
		}
		return nil
	}
	if !g.started {
		g.started = true
		g.start = time.Now()
	}

	seq := g.play.Seq
	if anyJustPressed(g.keys.SpeedUp) && seq.SpeedUp() {
		g.play.Bank.Beep()
	}
	if anyJustPressed(g.keys.SpeedDown) && seq.SpeedDown() {
		g.play.Bank.Beep()
	}

	var inputs []intseq.Input
	for key, lanes := range g.keys.Lanes {
		switch {
		case inpututil.IsKeyJustPressed(key):
			for _, lane := range lanes {
				inputs = append(inputs, intseq.Input{Lane: lane, Pressed: true})
			}
		case inpututil.IsKeyJustReleased(key):
			for _, lane := range lanes {
				inputs = append(inputs, intseq.Input{Lane: lane})
			}
		}
	}

	if !g.play.Tick(time.Since(g.start), inputs) {
		g.ended = true
		g.result = g.play.Result()
		if !g.result.Reached || seq.Autoplay() {
			return ebiten.Termination
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	st := g.play.Seq.State()

	g.drawLanes(screen, st)
	g.drawBGA(screen, st)
	g.drawGauge(screen, st)
	ebitenutil.DebugPrintAt(screen, bmsplay.StatusLine(st, g.play.Duration), laneLeft, windowH-20)

	if st.HasGrade && st.Now-st.LastGradeAt < gradeShown {
		msg := st.LastGrade.String()
		if st.Tally.Combo > 1 {
			msg = fmt.Sprintf("%s  %d COMBO", msg, st.Tally.Combo)
		}
		ebitenutil.DebugPrintAt(screen, msg, laneLeft+(g.right-laneLeft)/2-len(msg)*3, judgeLine-120)
	}
	if g.ended {
		vector.DrawFilledRect(screen, 120, 180, 560, 200, color.RGBA{0, 0, 0, 224}, false)
		y := 200
		for _, line := range strings.Split(g.result.Summary(), "\n") {
			ebitenutil.DebugPrintAt(screen, line, 140, y)
			y += 20
		}
		ebitenutil.DebugPrintAt(screen, "press Enter to exit", 140, y+20)
	}
}

// ypos maps a chart position onto the lane area.
func ypos(c *bms.Chart, st intseq.State, t float64) float32 {
	span := c.AdjustPosition(st.Line, st.Top)
	if span <= 0 {
		return judgeLine
	}
	return judgeLine - float32((judgeLine-laneTop)*c.AdjustPosition(st.Line, t)/span)
}

func (g *game) drawLanes(screen *ebiten.Image, st intseq.State) {
	seq := g.play.Seq
	c := seq.Chart()
	h := float32(judgeLine - laneTop)

	column := make(map[bms.Lane]laneColumn, len(g.lanes))
	for _, col := range g.lanes {
		column[col.lane] = col
		bg := laneBgColor
		if seq.Held(col.lane) {
			bg = heldColor
		}
		vector.DrawFilledRect(screen, float32(col.x), laneTop, float32(col.style.width), h, bg, false)
	}

	width := float32(g.right - laneLeft)
	for m := int(st.Line) + 1; float64(m) < st.Top; m++ {
		vector.DrawFilledRect(screen, laneLeft, ypos(c, st, float64(m)), width, 1, barColor, false)
	}

	// long notes that started below the judge line
	cursor := seq.Cursor()
	if seq.Info().HasLongNote {
		for _, col := range g.lanes {
			lane := col.lane
			next, ok := cursor.FindNext(func(o *bms.Obj) bool { return o.IsLN() && o.Lane == lane })
			if ok && next.Obj().IsLNDone() {
				top := ypos(c, st, min(next.Time(), st.Top))
				drawLongNote(screen, col, top, judgeLine)
			}
		}
	}

	objs := c.Objs
	for i := cursor.Pos(); i < len(objs) && objs[i].Time < st.Top; i++ {
		o := objs[i]
		if !o.IsRenderable() {
			continue
		}
		col, ok := column[o.Lane]
		if !ok {
			continue
		}
		y := ypos(c, st, o.Time)
		switch o.Kind {
		case bms.Visible:
			vector.DrawFilledRect(screen, float32(col.x), y-5, float32(col.style.width), 5, col.style.color, false)
		case bms.Bomb:
			vector.DrawFilledRect(screen, float32(col.x), y-5, float32(col.style.width), 5, bombColor, false)
		case bms.LNStart:
			end := float32(laneTop)
			for j := i + 1; j < len(objs) && objs[j].Time < st.Top; j++ {
				if objs[j].IsLNDone() && objs[j].Lane == o.Lane {
					end = ypos(c, st, objs[j].Time)
					break
				}
			}
			drawLongNote(screen, col, end, y)
		}
	}

	vector.DrawFilledRect(screen, laneLeft, judgeLine, width, 2, judgeColor, false)
}

func drawLongNote(screen *ebiten.Image, col laneColumn, top, bottom float32) {
	x, w := float32(col.x), float32(col.style.width)
	body := col.style.color
	body.A = 160
	vector.DrawFilledRect(screen, x+3, top, w-6, bottom-top, body, false)
	vector.DrawFilledRect(screen, x, top, w, 5, col.style.color, false)
	vector.DrawFilledRect(screen, x, bottom-5, w, 5, col.style.color, false)
}

func (g *game) drawBGA(screen *ebiten.Image, st intseq.State) {
	vector.DrawFilledRect(screen, bgaLeft, bgaTop, bmsBGASize, bmsBGASize, laneBgColor, false)
	poor := st.HasGrade && st.LastGrade == intseq.Miss && st.Now-st.LastGradeAt < poorShown
	layers := []bms.BGALayer{bms.Layer1, bms.Layer2, bms.Layer3}
	if poor {
		layers = []bms.BGALayer{bms.PoorBGA}
	}
	for _, layer := range layers {
		key := st.BGA[layer]
		if !key.Valid() || int(key) >= len(g.bga) || g.bga[key] == nil {
			continue
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(bgaLeft, bgaTop)
		screen.DrawImage(g.bga[key], op)
	}
}

func (g *game) drawGauge(screen *ebiten.Image, st intseq.State) {
	w := float32(g.right - laneLeft)
	fill := w * float32(max(st.Tally.Gauge, 0)) / intseq.MaxGauge
	clr := gaugeColor
	if !st.Tally.Cleared() {
		clr = gaugeLowColor
	}
	vector.DrawFilledRect(screen, laneLeft, judgeLine+20, w, 8, laneBgColor, false)
	vector.DrawFilledRect(screen, laneLeft, judgeLine+20, fill, 8, clr, false)
	mark := float32(laneLeft) + w*intseq.SurvivalGauge/intseq.MaxGauge
	vector.DrawFilledRect(screen, mark, judgeLine+16, 1, 16, judgeColor, false)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return windowW, windowH
}

func pickChart() (string, error) {
	path, err := dialog.File().Filter("BMS charts", "bms", "bme", "bml", "pms").Title("Open chart").Load()
	if errors.Is(err, dialog.ErrCancelled) {
		os.Exit(0)
	}
	return path, err
}

func main() {
	var (
		preset   = flag.String("preset", "", "key layout: "+strings.Join(bms.PresetNames(), "|"))
		leftKeys = flag.String("keyspec", "", "explicit key specification for the left side")
		right    = flag.String("keyspec2", "", "explicit key specification for the right side")
		modifier = flag.String("modifier", "", "lane modifier: mirror|shuffle|shuffle-ex|random|random-ex")
		autoplay = flag.Bool("autoplay", false, "play every note automatically")
		speed    = flag.Float64("speed", 1, "initial play speed")
		seed     = flag.Uint64("seed", 0, "random seed for #RANDOM and modifiers (0 = time based)")
		keysPath = flag.String("keys", "", "YAML key binding file")
	)
	flag.Parse()

	path := flag.Arg(0)
	if path == "" {
		var err error
		if path, err = pickChart(); err != nil {
			log.Fatal(err)
		}
	}

	keys, err := keymap.Load(*keysPath)
	if err != nil {
		log.Fatal(err)
	}
	mod, err := bms.ParseModifier(*modifier)
	if err != nil {
		log.Fatal(err)
	}
	opts := []bmsplay.Option{
		bmsplay.WithPreset(*preset),
		bmsplay.WithKeySpec(*leftKeys, *right),
		bmsplay.WithModifier(mod),
		bmsplay.WithAutoplay(*autoplay),
		bmsplay.WithPlaySpeed(*speed),
	}
	if *seed != 0 {
		opts = append(opts, bmsplay.WithSeed(*seed))
	}
	song, err := bmsplay.Load(path, opts...)
	if err != nil {
		log.Fatal(err)
	}
	play, sum, err := song.Prepare(song.NewLoader())
	if err != nil {
		log.Fatal(err)
	}
	defer play.Close()
	log.Printf("loaded %s", sum.Describe())

	title := song.Chart.Title
	if title == "" {
		title = path
	}
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle(fmt.Sprintf("bmsplay-go: %s", title))
	ebiten.SetTPS(240)
	if err := ebiten.RunGame(newGame(song, play, keys)); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
	if play.Result().Reached && !*autoplay {
		fmt.Print(play.Result().Summary())
	}
}
