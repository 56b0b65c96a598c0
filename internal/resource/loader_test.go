package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cbegin/bmsplay-go/internal/bms"
)

type mapStore struct {
	mu    sync.Mutex
	clips map[bms.Key][]byte
}

func (s *mapStore) Set(key bms.Key, pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[key] = pcm
}

type warnings struct {
	mu   sync.Mutex
	msgs []string
}

func (w *warnings) warnf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, fmt.Sprintf(format, args...))
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.Bytes()
}

func silentWAV(frames int) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+frames*2))
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(1), uint16(1), uint32(44100), uint32(88200), uint16(2), uint16(16)} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(frames*2))
	buf.Write(make([]byte, frames*2))
	return buf.Bytes()
}

func TestLoaderLoadsImages(t *testing.T) {
	base := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	writeFile(t, filepath.Join(base, "bg.png"), pngBytes(t, src))

	c := bms.NewChart()
	c.ImagePaths[1] = "BG.PNG"
	c.ImagePaths[2] = "missing.bmp"
	c.ImagePaths[4] = "intro.mpg"
	c.Blits = []bms.BlitCmd{{Dst: 3, Src: 1, X1: 0, Y1: 0, X2: 2, Y2: 2, DX: 10, DY: 10}}

	var w warnings
	var progress []string
	var mu sync.Mutex
	l := NewLoader(NewDir(base))
	l.Warnf = w.warnf
	l.OnProgress = func(path string) {
		mu.Lock()
		progress = append(progress, path)
		mu.Unlock()
	}
	images, sum := l.LoadImages(c)

	if images[1] == nil || images[2] != nil || images[4] != nil {
		t.Fatalf("unexpected images %v %v %v", images[1] != nil, images[2] != nil, images[4] != nil)
	}
	if sum.Loaded != 1 || sum.Failed != 2 || len(w.msgs) != 2 || len(progress) != 3 {
		t.Fatalf("unexpected summary %+v warnings %v progress %v", sum, w.msgs, progress)
	}
	if images[3] == nil || images[3].NRGBAAt(10, 10).A != 0xff || images[3].NRGBAAt(12, 12).A != 0 {
		t.Fatalf("expected blit into a new image")
	}
}

func TestLoaderLoadsSounds(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "kick.wav"), silentWAV(100))
	writeFile(t, filepath.Join(base, "broken.wav"), []byte("junk"))

	c := bms.NewChart()
	c.SoundPaths[1] = "KICK.ogg"
	c.SoundPaths[2] = "broken.wav"
	store := &mapStore{clips: map[bms.Key][]byte{}}
	var w warnings
	l := NewLoader(NewDir(base))
	l.Warnf = w.warnf
	l.Workers = 2
	sum := l.LoadSounds(c, store)

	if len(store.clips[1]) != 400 {
		t.Fatalf("expected 400 bytes of PCM, got %d", len(store.clips[1]))
	}
	if _, ok := store.clips[2]; ok {
		t.Fatalf("expected the broken sound to be skipped")
	}
	if sum.Loaded != 1 || sum.Failed != 1 || sum.Bytes != 400 || len(w.msgs) != 1 {
		t.Fatalf("unexpected summary %+v warnings %v", sum, w.msgs)
	}
}

func TestDecodeImageColorKey(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 2, 1))
	opaque.Set(0, 0, color.RGBA{0, 0, 0, 0xff})
	opaque.Set(1, 0, color.RGBA{0x10, 0, 0, 0xff})
	img, err := DecodeImage(bytes.NewReader(pngBytes(t, opaque)))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if img.NRGBAAt(0, 0).A != 0 || img.NRGBAAt(1, 0).A != 0xff {
		t.Fatalf("expected black to become transparent")
	}

	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	translucent.Set(0, 0, color.NRGBA{0, 0, 0, 0xff})
	translucent.Set(1, 0, color.NRGBA{0xff, 0, 0, 0x80})
	img, err = DecodeImage(bytes.NewReader(pngBytes(t, translucent)))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if img.NRGBAAt(0, 0).A != 0xff || img.NRGBAAt(1, 0).A != 0x80 {
		t.Fatalf("expected alpha to be kept, got %v %v", img.NRGBAAt(0, 0), img.NRGBAAt(1, 0))
	}
}

func TestApplyBlitsClips(t *testing.T) {
	images := make([]*image.NRGBA, bms.MaxKey)
	src := image.NewNRGBA(image.Rect(0, 0, 300, 300))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	images[1] = src
	ApplyBlits(images, []bms.BlitCmd{
		{Dst: 2, Src: 1, X1: -5, Y1: -5, X2: 400, Y2: 3, DX: 0, DY: 0},
		{Dst: 5, Src: 9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{Dst: 1, Src: 1, X1: 0, Y1: 0, X2: 10, Y2: 10},
	})
	dst := images[2]
	if dst == nil || dst.Bounds().Dx() != BGAWidth {
		t.Fatalf("expected a BGA-sized destination")
	}
	if dst.NRGBAAt(250, 2).A != 0xff || dst.NRGBAAt(0, 3).A != 0 {
		t.Fatalf("expected rows 0..2 copied across the whole width")
	}
	if images[5] != nil {
		t.Fatalf("expected a missing source to be skipped")
	}
}
