package bmsplay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	intaudio "github.com/cbegin/bmsplay-go/internal/audio"
	"github.com/cbegin/bmsplay-go/internal/bms"
	intres "github.com/cbegin/bmsplay-go/internal/resource"
	intseq "github.com/cbegin/bmsplay-go/internal/sequencer"
)

type Option func(*config)

type config struct {
	seed      uint64
	rng       bms.Rand
	modifier  bms.Modifier
	keySpec   bms.KeySpecOptions
	autoplay  bool
	playSpeed float64
	onEvent   func(intseq.Event)
}

func defaultConfig() config {
	return config{playSpeed: 1}
}

// WithSeed fixes the random source used for #RANDOM and lane modifiers.
func WithSeed(seed uint64) Option {
	return func(cfg *config) {
		cfg.seed = seed
	}
}

// WithRand supplies the random source directly. It takes precedence over
// WithSeed.
func WithRand(r bms.Rand) Option {
	return func(cfg *config) {
		cfg.rng = r
	}
}

func WithModifier(m bms.Modifier) Option {
	return func(cfg *config) {
		cfg.modifier = m
	}
}

// WithPreset selects a named key layout such as "7", "10/fp" or "pms".
func WithPreset(name string) Option {
	return func(cfg *config) {
		cfg.keySpec.Preset = name
	}
}

// WithKeySpec sets explicit key specifications for both sides, e.g.
// "16s 11a 12b 13a".
func WithKeySpec(left, right string) Option {
	return func(cfg *config) {
		cfg.keySpec.Left = left
		cfg.keySpec.Right = right
	}
}

func WithAutoplay(enabled bool) Option {
	return func(cfg *config) {
		cfg.autoplay = enabled
	}
}

func WithPlaySpeed(speed float64) Option {
	return func(cfg *config) {
		cfg.playSpeed = speed
	}
}

// WithEventHandler installs a callback for grades, speed changes and the
// end of play. It runs on the goroutine that calls Tick.
func WithEventHandler(fn func(intseq.Event)) Option {
	return func(cfg *config) {
		cfg.onEvent = fn
	}
}

func (cfg *config) rand() bms.Rand {
	if cfg.rng != nil {
		return cfg.rng
	}
	seed := cfg.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Song is a chart ready for play: parsed, sanitized, compacted to its key
// layout and with the lane modifier applied.
type Song struct {
	Chart   *bms.Chart
	KeySpec *bms.KeySpec
	Info    bms.Info

	cfg config
}

// Compile prepares an in-memory chart.
func Compile(src []byte, opts ...Option) (*Song, error) {
	return compile(bytes.NewReader(src), "", opts)
}

// Load reads and prepares the chart at path. Resources are resolved relative
// to the chart's directory.
func Load(path string, opts ...Option) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()
	song, err := compile(f, path, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	// #PATH_WAV overrides the chart's directory; relative values are taken
	// from it.
	dir := filepath.Dir(path)
	switch base := song.Chart.BasePath; {
	case base == "":
		song.Chart.BasePath = dir
	case !filepath.IsAbs(base):
		song.Chart.BasePath = filepath.Join(dir, base)
	}
	return song, nil
}

func compile(r io.Reader, path string, opts []Option) (*Song, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	rng := cfg.rand()

	pcfg := bms.DefaultParserConfig()
	pcfg.Rand = rng
	chart, err := bms.NewParser(pcfg).Parse(r)
	if err != nil {
		return nil, err
	}
	bms.Sanitize(chart)

	ksOpts := cfg.keySpec
	ksOpts.Path = path
	ks, err := bms.NewKeySpec(chart, ksOpts)
	if err != nil {
		return nil, err
	}
	bms.Compact(chart, ks)
	info := bms.Analyze(chart)

	if cfg.modifier != bms.NoModifier {
		bms.ApplyModifier(chart, cfg.modifier, rng, ks, 0, ks.Split)
		if ks.Split < len(ks.Order) {
			bms.ApplyModifier(chart, cfg.modifier, rng, ks, ks.Split, len(ks.Order))
		}
	}
	return &Song{Chart: chart, KeySpec: ks, Info: info, cfg: cfg}, nil
}

// Duration estimates the play time. soundLength may be nil.
func (s *Song) Duration(soundLength func(bms.Key) float64) time.Duration {
	secs := bms.PlayDuration(s.Chart, s.Info.OriginOffset, soundLength)
	return time.Duration(secs * float64(time.Second))
}

// NewSequencer starts a play of the song against sink, which may be nil.
func (s *Song) NewSequencer(sink intseq.SoundSink) *intseq.Sequencer {
	return intseq.NewWithOptions(s.Chart, sink, intseq.Options{
		Autoplay:  s.cfg.autoplay,
		PlaySpeed: s.cfg.playSpeed,
		OnEvent:   s.cfg.onEvent,
	})
}

// Result summarizes a finished play.
type Result struct {
	// Reached is false when play stopped before the last note.
	Reached  bool
	Cleared  bool
	Tally    intseq.Tally
	MaxScore int
}

func resultOf(seq *intseq.Sequencer) Result {
	tally := seq.Tally()
	return Result{
		Reached:  seq.ReachedEnd(),
		Cleared:  tally.Cleared(),
		Tally:    tally,
		MaxScore: seq.Info().MaxScore,
	}
}

// Game is a song with its sounds and images loaded, playing through the
// audio device.
type Game struct {
	Song     *Song
	Bank     *intaudio.Bank
	Images   []*image.NRGBA
	Seq      *intseq.Sequencer
	Duration time.Duration
}

// LoadSummary reports what Prepare loaded.
type LoadSummary struct {
	Sounds intres.Summary
	Images intres.Summary
}

// Prepare loads the song's resources with loader and creates the play
// session. Missing resources are reported through the loader and do not
// fail Prepare.
func (s *Song) Prepare(loader *intres.Loader) (*Game, LoadSummary, error) {
	var sum LoadSummary
	if loader == nil {
		return nil, sum, errors.New("bmsplay: nil loader")
	}
	bank, err := intaudio.NewBank()
	if err != nil {
		return nil, sum, err
	}
	sum.Sounds = loader.LoadSounds(s.Chart, bank)
	images, imgSum := loader.LoadImages(s.Chart)
	sum.Images = imgSum
	return &Game{
		Song:     s,
		Bank:     bank,
		Images:   images,
		Seq:      s.NewSequencer(bank),
		Duration: s.Duration(bank.Duration),
	}, sum, nil
}

// NewLoader returns a resource loader rooted at the song's directory.
func (s *Song) NewLoader() *intres.Loader {
	return intres.NewLoader(intres.NewDir(s.Chart.BasePath))
}

// Tick advances the play; see sequencer.Sequencer.Tick.
func (g *Game) Tick(now time.Duration, inputs []intseq.Input) bool {
	return g.Seq.Tick(now, inputs)
}

func (g *Game) Result() Result { return resultOf(g.Seq) }

// Close stops every sound.
func (g *Game) Close() { g.Bank.Close() }
