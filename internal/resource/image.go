package resource

import (
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"

	"github.com/cbegin/bmsplay-go/internal/bms"
)

// BGA images are drawn into a 256x256 area.
const (
	BGAWidth  = 256
	BGAHeight = 256
)

var ImageExtensions = []string{".bmp", ".png", ".jpg", ".jpeg", ".gif"}

// DecodeImage reads a BGA image. Images without transparency treat black
// as transparent so that layers can be stacked.
func DecodeImage(r io.Reader) (*image.NRGBA, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		colorKey(dst)
	}
	return dst, nil
}

func colorKey(img *image.NRGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i] == 0 && img.Pix[i+1] == 0 && img.Pix[i+2] == 0 {
			img.Pix[i+3] = 0
		}
	}
}

// ApplyBlits copies image regions per the chart's #BGA commands. A missing
// destination is created as a transparent BGA-sized image; a missing source
// skips the command.
func ApplyBlits(images []*image.NRGBA, blits []bms.BlitCmd) {
	for _, bc := range blits {
		if bc.Src == bc.Dst || !bc.Src.Valid() || !bc.Dst.Valid() {
			continue
		}
		src := images[bc.Src]
		if src == nil {
			continue
		}
		if images[bc.Dst] == nil {
			images[bc.Dst] = image.NewNRGBA(image.Rect(0, 0, BGAWidth, BGAHeight))
		}
		x1, y1 := max(bc.X1, 0), max(bc.Y1, 0)
		x2, y2 := min(bc.X2, bc.X1+BGAWidth), min(bc.Y2, bc.Y1+BGAHeight)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		dst := images[bc.Dst]
		r := image.Rect(bc.DX, bc.DY, bc.DX+x2-x1, bc.DY+y2-y1)
		draw.Draw(dst, r, src, image.Pt(x1, y1), draw.Over)
	}
}
