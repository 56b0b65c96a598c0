package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// Extensions lists the sound formats Decode understands, in lookup order.
var Extensions = []string{".wav", ".ogg", ".mp3"}

var ErrUnsupportedFormat = errors.New("audio: unsupported sound format")

// Decode reads a whole sound into 16-bit stereo PCM at sampleRate. The
// format is chosen by the extension of name.
func Decode(name string, r io.Reader, sampleRate int) ([]byte, error) {
	var (
		stream io.Reader
		err    error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		stream, err = wav.DecodeWithSampleRate(sampleRate, r)
	case ".ogg":
		stream, err = vorbis.DecodeWithSampleRate(sampleRate, r)
	case ".mp3":
		stream, err = mp3.DecodeWithSampleRate(sampleRate, r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return pcm[:len(pcm)/bytesPerFrame*bytesPerFrame], nil
}
