package bmsplay

import (
	"errors"
	"slices"
	"time"

	intseq "github.com/cbegin/bmsplay-go/internal/sequencer"
)

// DefaultStep is the simulated frame length used by Autoplay and Simulate
// when step is zero.
const DefaultStep = time.Second / 60

// maxSimulated bounds headless play so a chart that never ends cannot spin
// forever.
const maxSimulated = 6 * time.Hour

var ErrSimulationTimeout = errors.New("bmsplay: simulation did not finish")

// TimedInput is a lane transition scheduled at a wall time from the start of
// play.
type TimedInput struct {
	At    time.Duration
	Input intseq.Input
}

// Outcome is the result of a headless play.
type Outcome struct {
	Result
	Elapsed time.Duration
}

// Autoplay plays the song headless with every note hit on time and no sound.
func Autoplay(song *Song, step time.Duration) (Outcome, error) {
	cfg := song.cfg
	cfg.autoplay = true
	auto := &Song{Chart: song.Chart, KeySpec: song.KeySpec, Info: song.Info, cfg: cfg}
	return run(auto, step, nil)
}

// Simulate plays the song headless on a simulated clock, feeding inputs at
// their scheduled times. Inputs landing inside the same frame are delivered
// together in order.
func Simulate(song *Song, step time.Duration, inputs []TimedInput) (Outcome, error) {
	inputs = slices.Clone(inputs)
	slices.SortStableFunc(inputs, func(a, b TimedInput) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return run(song, step, inputs)
}

func run(song *Song, step time.Duration, inputs []TimedInput) (Outcome, error) {
	if step <= 0 {
		step = DefaultStep
	}
	seq := song.NewSequencer(nil)
	var batch []intseq.Input
	now := time.Duration(0)
	for ; now <= maxSimulated; now += step {
		batch = batch[:0]
		for len(inputs) > 0 && inputs[0].At <= now {
			batch = append(batch, inputs[0].Input)
			inputs = inputs[1:]
		}
		if !seq.Tick(now, batch) {
			return Outcome{Result: resultOf(seq), Elapsed: now}, nil
		}
	}
	return Outcome{Result: resultOf(seq), Elapsed: now}, ErrSimulationTimeout
}
