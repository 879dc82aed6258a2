package graphicspipeline

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// SoftwareScaler implements Scaler on top of golang.org/x/image/draw's
// nearest-neighbor resampler — a CPU fallback for boards with no hardware
// scale block, the same role video_backend_ebiten.go plays when it blits
// video_vga.go's paletteRGBA-converted frame without a GPU path.
type SoftwareScaler struct{}

func (SoftwareScaler) Scale(op ScaleOp) error {
	src := &rgb565Image{buf: op.InBuf, w: op.InWidth, h: op.InHeight}
	dst := &rgb565Image{buf: op.OutBuf, w: op.OutWidth, h: op.OutHeight}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return nil
}

// rgb565Image adapts a packed RGB565 buffer to image.Image/draw.Image so
// x/image/draw can resample it in place, without an RGBA round trip.
type rgb565Image struct {
	buf  []byte
	w, h int
}

func (m *rgb565Image) ColorModel() color.Model { return color.RGBAModel }
func (m *rgb565Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.w, m.h) }

func (m *rgb565Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return color.RGBA{}
	}
	o := (y*m.w + x) * 2
	v := uint16(m.buf[o]) | uint16(m.buf[o+1])<<8
	r := byte(v>>11) & 0x1F
	g := byte(v>>5) & 0x3F
	b := byte(v) & 0x1F
	return color.RGBA{R: r << 3, G: g << 2, B: b << 3, A: 0xFF}
}

func (m *rgb565Image) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return
	}
	r, g, b, _ := c.RGBA()
	v := uint16(byte(r>>8)>>3)<<11 | uint16(byte(g>>8)>>2)<<5 | uint16(byte(b>>8)>>3)
	o := (y*m.w + x) * 2
	m.buf[o] = byte(v)
	m.buf[o+1] = byte(v >> 8)
}
