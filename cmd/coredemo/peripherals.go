package main

// panelDisplay models the fixed-geometry MIPI-DSI panel: a single RGB565
// frame buffer plus a brightness register, the way video_vga.go models a
// hardware raster target with no real device behind it.
type panelDisplay struct {
	fb         []byte
	width, height int
	brightness int
}

func newPanelDisplay(width, height int) *panelDisplay {
	return &panelDisplay{fb: make([]byte, width*height*2), width: width, height: height}
}

func (d *panelDisplay) PanelFrameBuffer(int) []byte { return d.fb }

func (d *panelDisplay) Blit(x, y, w, h int, buf []byte) error {
	rowBytes := w * 2
	for row := 0; row < h; row++ {
		dstOff := ((y+row)*d.width + x) * 2
		srcOff := row * rowBytes
		copy(d.fb[dstOff:dstOff+rowBytes], buf[srcOff:srcOff+rowBytes])
	}
	return nil
}

func (d *panelDisplay) SetBrightness(pct int) error {
	d.brightness = pct
	return nil
}
