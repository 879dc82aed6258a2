package graphicspipeline

// lut565 is a 256-entry RGB888→RGB565 lookup table, rebuilt once per frame
// from the frame's palette the way video_vga.go rebuilds its paletteU32
// cache on every palette change.
type lut565 [256]uint16

func buildLUT565(pal Palette) lut565 {
	var lut lut565
	for i, c := range pal {
		lut[i] = uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
	}
	return lut
}

func (p *Pipeline) worker() {
	for tok := range p.submitCh {
		if tok == -1 {
			p.mu.Lock()
			w, h := p.overlay.Width, p.overlay.Height
			pixels := p.overlay.Pixels
			p.mu.Unlock()
			if err := p.display.Blit(0, 0, w, h, pixels); err != nil {
				p.onFatal(newErr("worker", CodePeripheral, err))
			}
		} else {
			p.processFrame(tok)
		}
		p.ackCh <- tok
		p.submitSem.Release(1)
	}
}

// processFrame converts frame idx's dirty region from paletted to RGB565
// and hands it to the hardware scaler, then flushes the panel.
func (p *Pipeline) processFrame(idx int) {
	frame := &p.frames[idx]
	if frame.Dirty.Empty() {
		return
	}

	p.ensureIntermediate(frame.Surf.Width, frame.Surf.Height)
	lut := buildLUT565(frame.Pal)
	applyLUTOverDirty(frame, lut, p.intermediate, p.interW)

	op := ScaleOp{
		InBuf: p.intermediate, InWidth: p.interW, InHeight: p.interH, InFormat: FormatRGB565,
		OutBuf: p.display.PanelFrameBuffer(0), OutWidth: p.cfg.PanelWidth, OutHeight: p.cfg.PanelHeight,
		OutFormat: FormatRGB565, OutSize: p.cfg.PanelWidth * p.cfg.PanelHeight * 2,
		ScaleX: float64(p.cfg.PanelWidth) / float64(frame.Surf.Width),
		ScaleY: float64(p.cfg.PanelHeight) / float64(frame.Surf.Height),
	}
	if err := p.scaler.Scale(op); err != nil {
		p.onFatal(newErr("processFrame", CodePeripheral, err))
		return
	}
	if err := p.display.Blit(0, 0, p.cfg.PanelWidth, p.cfg.PanelHeight, op.OutBuf); err != nil {
		p.onFatal(newErr("processFrame", CodePeripheral, err))
	}
}

// ensureIntermediate (re)allocates the DMA-capable RGB565 intermediate
// buffer if the frame geometry changed since the last pass.
func (p *Pipeline) ensureIntermediate(w, h int) {
	if p.interW == w && p.interH == h && p.intermediate != nil {
		return
	}
	p.interW, p.interH = w, h
	p.intermediate = make([]byte, w*h*2)
}

// applyLUTOverDirty walks frame's dirty rect, mapping each CLUT8 index
// through lut into the RGB565 intermediate buffer.
func applyLUTOverDirty(frame *Frame, lut lut565, out []byte, outW int) {
	d := frame.Dirty
	surf := &frame.Surf
	for y := d.Top; y < d.Bottom; y++ {
		srcRow := y * surf.Pitch
		dstRow := y * outW * 2
		for x := d.Left; x < d.Right; x++ {
			idx := surf.Pixels[srcRow+x]
			v := lut[idx]
			o := dstRow + x*2
			out[o] = byte(v)
			out[o+1] = byte(v >> 8)
		}
	}
}
