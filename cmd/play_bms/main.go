package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cbegin/bmsplay-go"
	"github.com/cbegin/bmsplay-go/internal/bms"
)

// statusEvery matches the refresh rate of the text display.
const statusEvery = 47 * time.Millisecond

func main() {
	var (
		preset   = flag.String("preset", "", "key layout: "+strings.Join(bms.PresetNames(), "|"))
		leftKeys = flag.String("keyspec", "", "explicit key specification for the left side, e.g. \"16s 11a 12b 13a\"")
		right    = flag.String("keyspec2", "", "explicit key specification for the right side")
		modifier = flag.String("modifier", "", "lane modifier: mirror|shuffle|shuffle-ex|random|random-ex")
		speed    = flag.Float64("speed", 1, "initial play speed")
		seed     = flag.Uint64("seed", 0, "random seed for #RANDOM and modifiers (0 = time based)")
		headless = flag.Bool("headless", false, "simulate without audio and print the result")
		quiet    = flag.Bool("q", false, "suppress resource warnings")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] chart.bms\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	mod, err := bms.ParseModifier(*modifier)
	if err != nil {
		log.Fatal(err)
	}
	opts := []bmsplay.Option{
		bmsplay.WithPreset(*preset),
		bmsplay.WithKeySpec(*leftKeys, *right),
		bmsplay.WithModifier(mod),
		bmsplay.WithPlaySpeed(*speed),
		bmsplay.WithAutoplay(true),
	}
	if *seed != 0 {
		opts = append(opts, bmsplay.WithSeed(*seed))
	}
	song, err := bmsplay.Load(flag.Arg(0), opts...)
	if err != nil {
		log.Fatal(err)
	}
	printHeader(song)

	if *headless {
		out, err := bmsplay.Autoplay(song, 0)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("simulated %s\n", bmsplay.FormatDuration(out.Elapsed))
		fmt.Print(out.Summary())
		return
	}

	loader := song.NewLoader()
	if *quiet {
		loader.Warnf = func(string, ...any) {}
	}
	game, sum, err := song.Prepare(loader)
	if err != nil {
		log.Fatal(err)
	}
	defer game.Close()
	fmt.Printf("loaded %s\n", sum.Describe())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	play(ctx, game)
}

func printHeader(song *bmsplay.Song) {
	c := song.Chart
	if c.Title != "" {
		fmt.Println(c.Title)
	}
	if c.Artist != "" || c.Genre != "" {
		fmt.Printf("%s / %s\n", c.Artist, c.Genre)
	}
	fmt.Printf("%d notes, ~%s\n", song.Info.NumNotes, bmsplay.FormatDuration(song.Duration(nil)))
}

// play runs the chart against the wall clock until it ends or ctx is done.
func play(ctx context.Context, game *bmsplay.Game) {
	limiter := rate.NewLimiter(rate.Every(statusEvery), 1)
	ticker := time.NewTicker(time.Millisecond * 4)
	defer ticker.Stop()

	start := time.Now()
	for running := true; running; {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
		}
		running = game.Tick(time.Since(start), nil)
		if limiter.Allow() || !running {
			fmt.Printf("\r%s", bmsplay.StatusLine(game.Seq.State(), game.Duration))
		}
	}
	fmt.Println()
}
