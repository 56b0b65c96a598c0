package resource

import (
	"fmt"
	"image"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/remeh/sizedwaitgroup"

	"github.com/cbegin/bmsplay-go/internal/audio"
	"github.com/cbegin/bmsplay-go/internal/bms"
)

// SoundStore receives decoded sounds. audio.Bank implements it.
type SoundStore interface {
	Set(key bms.Key, pcm []byte)
}

// Loader loads the sounds and images a chart refers to. Loading runs on a
// bounded number of goroutines; failures are reported through Warnf and
// leave the resource empty.
type Loader struct {
	Dir        *Dir
	Workers    int
	SampleRate int
	// Warnf defaults to log.Printf.
	Warnf func(format string, args ...any)
	// OnProgress is called after each resource with the path just loaded.
	// It may be called from several goroutines at once.
	OnProgress func(path string)
}

func NewLoader(dir *Dir) *Loader {
	return &Loader{Dir: dir, Workers: runtime.NumCPU(), SampleRate: audio.SampleRate}
}

func (l *Loader) warnf(format string, args ...any) {
	if l.Warnf != nil {
		l.Warnf(format, args...)
		return
	}
	log.Printf("warning: "+format, args...)
}

func (l *Loader) progress(path string) {
	if l.OnProgress != nil {
		l.OnProgress(path)
	}
}

func (l *Loader) workers() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return 1
}

// Summary counts what a Load call managed to read.
type Summary struct {
	Loaded int
	Failed int
	Bytes  int64
}

type tally struct {
	mu sync.Mutex
	Summary
}

func (t *tally) add(ok bool, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.Loaded++
		t.Bytes += n
	} else {
		t.Failed++
	}
}

// LoadSounds decodes every #WAV of the chart into store.
func (l *Loader) LoadSounds(c *bms.Chart, store SoundStore) Summary {
	var t tally
	wg := sizedwaitgroup.New(l.workers())
	for i, path := range c.SoundPaths {
		if path == "" {
			continue
		}
		wg.Add()
		go func(key bms.Key, path string) {
			defer wg.Done()
			pcm, err := l.loadSound(path)
			if err != nil {
				l.warnf("failed to load sound %s: %v", describe("WAV", key, path), err)
				t.add(false, 0)
			} else {
				store.Set(key, pcm)
				t.add(true, int64(len(pcm)))
			}
			l.progress(path)
		}(bms.Key(i), path)
	}
	wg.Wait()
	return t.Summary
}

func (l *Loader) loadSound(path string) ([]byte, error) {
	full, ok := l.Dir.Resolve(path, audio.Extensions)
	if !ok {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return audio.Decode(full, f, l.SampleRate)
}

// LoadImages decodes every #BMP of the chart and applies the #BGA blit
// commands. The result is indexed by key; entries that failed are nil.
// Movies are not supported and are skipped with a warning.
func (l *Loader) LoadImages(c *bms.Chart) ([]*image.NRGBA, Summary) {
	images := make([]*image.NRGBA, bms.MaxKey)
	var t tally
	wg := sizedwaitgroup.New(l.workers())
	for i, path := range c.ImagePaths {
		if path == "" {
			continue
		}
		wg.Add()
		go func(key bms.Key, path string) {
			defer wg.Done()
			img, err := l.loadImage(path)
			if err != nil {
				l.warnf("failed to load image %s: %v", describe("BMP", key, path), err)
				t.add(false, 0)
			} else {
				images[key] = img
				t.add(true, int64(len(img.Pix)))
			}
			l.progress(path)
		}(bms.Key(i), path)
	}
	wg.Wait()
	ApplyBlits(images, c.Blits)
	return images, t.Summary
}

func (l *Loader) loadImage(path string) (*image.NRGBA, error) {
	if strings.HasSuffix(strings.ToLower(path), ".mpg") {
		return nil, fmt.Errorf("movies are not supported")
	}
	full, ok := l.Dir.Resolve(path, ImageExtensions)
	if !ok {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeImage(f)
}

func describe(kind string, key bms.Key, path string) string {
	return fmt.Sprintf("#%s%s (%s)", kind, key, path)
}
