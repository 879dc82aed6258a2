package graphicspipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/intuitionamiga/coreport/internal/corelog"
)

// Config configures a Pipeline.
type Config struct {
	PanelWidth, PanelHeight   int
	FrameWidth, FrameHeight   int
	FrameFormat               PixelFormat
	RefreshHz                 float64 // target display refresh rate; 0 defaults to 30
	OnFatal                   func(error)
}

// Pipeline is the double-buffered graphics pipeline.
type Pipeline struct {
	cfg     Config
	display Display
	scaler  Scaler
	touch   Touch
	log     *corelog.Logger

	mu             sync.Mutex // guards fields the drawing side and GetTouch/grab calls touch directly
	frames         [2]Frame
	curFB          int
	overlay        Surface
	overlayVisible bool

	submitCh chan int
	ackCh    chan int
	submitSem *semaphore.Weighted

	rateLimit   time.Duration
	lastFlush   time.Time

	intermediate []byte
	interW, interH int

	touchScaleX, touchScaleY float64

	onFatal func(error)
}

// Init acquires the display, scaler, and (optionally) touch peripherals,
// allocates the two paletted frames at the configured frame size (panel
// size when unset) and the overlay at panel size, and starts the worker
// goroutine. The DMA-capable RGB565 intermediate is
// allocated lazily on first use.
func Init(cfg Config, display Display, scaler Scaler, touch Touch) (*Pipeline, error) {
	if cfg.PanelWidth <= 0 || cfg.PanelHeight <= 0 {
		return nil, newErr("Init", CodeBadConfig, nil)
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		cfg.FrameWidth, cfg.FrameHeight = cfg.PanelWidth, cfg.PanelHeight
	}
	if display == nil || scaler == nil {
		return nil, newErr("Init", CodeBadConfig, nil)
	}
	hz := cfg.RefreshHz
	if hz <= 0 {
		hz = 30
	}

	p := &Pipeline{
		cfg:       cfg,
		display:   display,
		scaler:    scaler,
		touch:     touch,
		log:       corelog.Default().WithPrefix("graphicspipeline"),
		submitCh:  make(chan int),
		ackCh:     make(chan int),
		submitSem: semaphore.NewWeighted(1),
		rateLimit: time.Duration(float64(time.Second) / hz),
		overlay:   NewSurface(cfg.PanelWidth, cfg.PanelHeight, FormatRGB565),
		onFatal:   cfg.OnFatal,
	}
	if p.onFatal == nil {
		p.onFatal = func(err error) { p.log.Errorf("fatal peripheral error: %v", err) }
	}
	p.frames[0] = newFrame(cfg.FrameWidth, cfg.FrameHeight)
	p.frames[1] = newFrame(cfg.FrameWidth, cfg.FrameHeight)
	p.recomputeTouchScale()

	go p.worker()
	return p, nil
}

// InitSize redefines the paletted frame geometry. It blocks until the
// worker is idle by acquiring the single-in-flight submission semaphore —
// the Go-idiomatic equivalent of round-tripping a token through ack_queue
// and putting it back (spec.md §4.2).
func (p *Pipeline) InitSize(width, height int, format PixelFormat) error {
	if width <= 0 || height <= 0 {
		return newErr("InitSize", CodeBadConfig, nil)
	}
	if err := p.submitSem.Acquire(context.Background(), 1); err != nil {
		return newErr("InitSize", CodeBadConfig, err)
	}
	defer p.submitSem.Release(1)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.FrameWidth, p.cfg.FrameHeight, p.cfg.FrameFormat = width, height, format
	p.frames[0] = newFrame(width, height)
	p.frames[1] = newFrame(width, height)
	p.curFB = 0
	p.interW, p.interH = 0, 0 // force intermediate reallocation on next worker pass
	p.recomputeTouchScale()
	return nil
}

// LockScreen returns direct draw access to the current frame's surface.
func (p *Pipeline) LockScreen() *Surface {
	p.mu.Lock()
	return &p.frames[p.curFB].Surf
}

// UnlockScreen releases draw access and marks the whole current frame dirty.
func (p *Pipeline) UnlockScreen() {
	p.frames[p.curFB].markFullyDirty()
	p.mu.Unlock()
}

// CopyRectToScreen blits buf (pitch bytes per row) into the current frame at
// (x,y), sized w×h, and unions the touched region into the frame's dirty
// rect.
func (p *Pipeline) CopyRectToScreen(buf []byte, pitch, x, y, w, h int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := &p.frames[p.curFB]
	if err := blitRect(&f.Surf, buf, pitch, x, y, w, h); err != nil {
		return newErr("CopyRectToScreen", CodeBadConfig, err)
	}
	f.Dirty = f.Dirty.Union(DirtyRect{Left: x, Top: y, Right: x + w, Bottom: y + h})
	return nil
}

// SetPalette writes count entries starting at start into the current
// frame's palette and marks the whole frame dirty.
func (p *Pipeline) SetPalette(pal []RGB888, start, count int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := &p.frames[p.curFB]
	if start < 0 || count < 0 || start+count > len(f.Pal) || count > len(pal) {
		return newErr("SetPalette", CodeBadConfig, nil)
	}
	copy(f.Pal[start:start+count], pal[:count])
	f.markFullyDirty()
	return nil
}

// GrabPalette returns a copy of count palette entries starting at start
// from the current frame.
func (p *Pipeline) GrabPalette(start, count int) ([]RGB888, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := &p.frames[p.curFB]
	if start < 0 || count < 0 || start+count > len(f.Pal) {
		return nil, newErr("GrabPalette", CodeBadConfig, nil)
	}
	out := make([]RGB888, count)
	copy(out, f.Pal[start:start+count])
	return out, nil
}

// CopyRectToOverlay blits into the panel-sized RGB565 overlay surface.
func (p *Pipeline) CopyRectToOverlay(buf []byte, pitch, x, y, w, h int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := blitRect(&p.overlay, buf, pitch, x, y, w, h); err != nil {
		return newErr("CopyRectToOverlay", CodeBadConfig, err)
	}
	p.overlayVisible = true
	return nil
}

// GrabOverlay snapshots the current overlay content.
func (p *Pipeline) GrabOverlay() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.overlay.Pixels))
	copy(out, p.overlay.Pixels)
	return out
}

// ClearOverlay snapshots the current panel content into the overlay and
// hides it.
func (p *Pipeline) ClearOverlay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(p.overlay.Pixels, p.display.PanelFrameBuffer(0))
	p.overlayVisible = false
}

// UpdateScreen is rate-limited to the configured refresh interval. If the
// overlay is visible it submits token -1 (the worker copies the overlay
// straight into the panel); otherwise it submits the current frame index
// and immediately flips ownership so the drawing side can keep mutating
// the new current frame while the worker converts and scales the old one.
func (p *Pipeline) UpdateScreen() error {
	now := time.Now()
	if !p.lastFlush.IsZero() && now.Sub(p.lastFlush) < p.rateLimit {
		return nil
	}
	if !p.submitSem.TryAcquire(1) {
		return nil // worker still busy with the previous frame
	}

	p.mu.Lock()
	overlay := p.overlayVisible
	token := p.curFB
	if overlay {
		token = -1
	}
	var oldFB int
	if !overlay {
		oldFB = p.curFB
		p.curFB = 1 - p.curFB
	}
	p.mu.Unlock()

	p.submitCh <- token
	ack := <-p.ackCh
	_ = ack

	if !overlay {
		p.mu.Lock()
		next := &p.frames[p.curFB]
		old := &p.frames[oldFB]
		copy(next.Surf.Pixels, old.Surf.Pixels)
		next.Pal = old.Pal
		next.Dirty = DirtyRect{}
		p.mu.Unlock()
	}

	p.lastFlush = now
	return nil
}

// GetTouch reads up to len(points) touch contacts. While an overlay is
// visible the raw panel coordinates pass through unchanged, since the
// overlay/GUI is already addressed in panel-pixel space; otherwise they are
// scaled down to logical frame coordinates (esp-graphics.cpp's getTouch()).
func (p *Pipeline) GetTouch(points []TouchPoint) (int, error) {
	if p.touch == nil {
		return 0, nil
	}
	n, err := p.touch.Read(points)
	if err != nil {
		return 0, newErr("GetTouch", CodePeripheral, err)
	}
	p.mu.Lock()
	overlayVisible := p.overlayVisible
	sx, sy := p.touchScaleX, p.touchScaleY
	p.mu.Unlock()
	if overlayVisible {
		return n, nil
	}
	for i := 0; i < n; i++ {
		points[i].X = int(float64(points[i].X) * sx)
		points[i].Y = int(float64(points[i].Y) * sy)
	}
	return n, nil
}

func (p *Pipeline) recomputeTouchScale() {
	if p.cfg.PanelWidth == 0 || p.cfg.PanelHeight == 0 {
		p.touchScaleX, p.touchScaleY = 1, 1
		return
	}
	p.touchScaleX = float64(p.cfg.FrameWidth) / float64(p.cfg.PanelWidth)
	p.touchScaleY = float64(p.cfg.FrameHeight) / float64(p.cfg.PanelHeight)
}

func blitRect(dst *Surface, src []byte, pitch, x, y, w, h int) error {
	bpp := dst.Pitch / dst.Width
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > dst.Width || y+h > dst.Height {
		return newErr("blitRect", CodeBadConfig, nil)
	}
	rowBytes := w * bpp
	for row := 0; row < h; row++ {
		srcOff := row * pitch
		dstOff := (y+row)*dst.Pitch + x*bpp
		copy(dst.Pixels[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
	return nil
}
