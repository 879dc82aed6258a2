package graphicspipeline

import (
	"sync"
	"testing"
	"time"
)

type fakeDisplay struct {
	mu    sync.Mutex
	buf   []byte
	blits [][]byte
}

func newFakeDisplay(size int) *fakeDisplay {
	return &fakeDisplay{buf: make([]byte, size)}
}

func (d *fakeDisplay) PanelFrameBuffer(int) []byte { return d.buf }

func (d *fakeDisplay) Blit(x, y, w, h int, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.blits = append(d.blits, cp)
	return nil
}

func (d *fakeDisplay) SetBrightness(int) error { return nil }

func (d *fakeDisplay) lastBlit() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.blits) == 0 {
		return nil
	}
	return d.blits[len(d.blits)-1]
}

// identityScaler copies the intermediate straight into the output buffer;
// valid when panel and frame geometry match (scale factor 1).
type identityScaler struct{}

func (identityScaler) Scale(op ScaleOp) error {
	copy(op.OutBuf, op.InBuf)
	return nil
}

func newTestPipeline(t *testing.T, hz float64) (*Pipeline, *fakeDisplay) {
	t.Helper()
	const w, h = 4, 4
	disp := newFakeDisplay(w * h * 2)
	p, err := Init(Config{
		PanelWidth: w, PanelHeight: h,
		FrameWidth: w, FrameHeight: h,
		FrameFormat: FormatCLUT8,
		RefreshHz:   hz,
	}, disp, identityScaler{}, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p, disp
}

func rgb565At(buf []byte, w, x, y int) uint16 {
	o := (y*w + x) * 2
	return uint16(buf[o]) | uint16(buf[o+1])<<8
}

// S5 — GP flip preserves palette.
func TestScenarioPaletteRoundTrip(t *testing.T) {
	p, _ := newTestPipeline(t, 1000)
	want := []RGB888{{R: 0x10, G: 0x20, B: 0x30}}
	if err := p.SetPalette(want, 0, 1); err != nil {
		t.Fatalf("SetPalette: %v", err)
	}
	if err := p.UpdateScreen(); err != nil {
		t.Fatalf("UpdateScreen: %v", err)
	}
	got, err := p.GrabPalette(0, 1)
	if err != nil {
		t.Fatalf("GrabPalette: %v", err)
	}
	if got[0] != want[0] {
		t.Fatalf("GrabPalette(0,1) = %+v, want %+v", got[0], want[0])
	}
}

// Invariant 6.
func TestInvariantPaletteRoundTripBitExact(t *testing.T) {
	p, _ := newTestPipeline(t, 1000)
	want := make([]RGB888, 256)
	for i := range want {
		want[i] = RGB888{R: byte(i), G: byte(i * 3), B: byte(i * 7)}
	}
	if err := p.SetPalette(want, 0, 256); err != nil {
		t.Fatalf("SetPalette: %v", err)
	}
	got, err := p.GrabPalette(0, 256)
	if err != nil {
		t.Fatalf("GrabPalette: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// Invariant 5: pixels drawn before update_screen land in the submitted
// panel buffer; pixels drawn after do not appear in that same submission.
func TestInvariantDirtyRectBoundary(t *testing.T) {
	p, disp := newTestPipeline(t, 1000) // 1000Hz -> ~1ms window, sleeps below clear it

	pal := make([]RGB888, 256)
	pal[7] = RGB888{R: 0xF8, G: 0xFC, B: 0xF8} // -> RGB565 0xFFFF
	pal[9] = RGB888{R: 0x00, G: 0x00, B: 0x00} // -> RGB565 0x0000
	if err := p.SetPalette(pal, 0, 256); err != nil {
		t.Fatalf("SetPalette: %v", err)
	}

	surf := p.LockScreen()
	surf.Pixels[0] = 7 // (0,0)
	p.UnlockScreen()

	if err := p.UpdateScreen(); err != nil {
		t.Fatalf("UpdateScreen: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	before := disp.lastBlit()
	if got := rgb565At(before, 4, 0, 0); got != 0xFFFF {
		t.Fatalf("pixel (0,0) after first update = %#x, want 0xFFFF", got)
	}

	beforeSnapshot := append([]byte(nil), before...)

	surf2 := p.LockScreen()
	surf2.Pixels[1] = 9 // (1,0), written after the first update_screen call
	p.UnlockScreen()

	// The already-submitted buffer is a snapshot: drawing after the call
	// that captured it must not retroactively mutate it.
	for i := range before {
		if before[i] != beforeSnapshot[i] {
			t.Fatalf("buffer submitted by the first UpdateScreen mutated after the call")
		}
	}

	if err := p.UpdateScreen(); err != nil {
		t.Fatalf("second UpdateScreen: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	after := disp.lastBlit()
	if got := rgb565At(after, 4, 1, 0); got != 0x0000 {
		t.Fatalf("pixel (1,0) after second update = %#x, want 0x0000", got)
	}
}

func TestUpdateScreenRateLimited(t *testing.T) {
	p, disp := newTestPipeline(t, 30) // 30Hz -> ~33ms window
	if err := p.UpdateScreen(); err != nil {
		t.Fatalf("first UpdateScreen: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	n := disp.blitCount()
	if err := p.UpdateScreen(); err != nil {
		t.Fatalf("second UpdateScreen: %v", err)
	}
	if disp.blitCount() != n {
		t.Fatalf("expected second call within the refresh window to be a no-op")
	}
}

func (d *fakeDisplay) blitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.blits)
}

type fakeTouch struct{ points []TouchPoint }

func (f fakeTouch) Read(points []TouchPoint) (int, error) {
	n := copy(points, f.points)
	return n, nil
}

// GetTouch scales panel coordinates down to logical frame coordinates when
// no overlay is visible, and passes them through unscaled while an overlay
// is visible (esp-graphics.cpp's getTouch()).
func TestGetTouchOverlayPassthrough(t *testing.T) {
	const panelW, panelH = 8, 8
	const frameW, frameH = 4, 4
	disp := newFakeDisplay(panelW * panelH * 2)
	touch := fakeTouch{points: []TouchPoint{{X: 8, Y: 4}}}
	p, err := Init(Config{
		PanelWidth: panelW, PanelHeight: panelH,
		FrameWidth: frameW, FrameHeight: frameH,
		FrameFormat: FormatCLUT8,
		RefreshHz:   1000,
	}, disp, identityScaler{}, touch)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	pts := make([]TouchPoint, 1)
	n, err := p.GetTouch(pts)
	if err != nil {
		t.Fatalf("GetTouch: %v", err)
	}
	if n != 1 {
		t.Fatalf("GetTouch returned n=%d, want 1", n)
	}
	if pts[0].X != 4 || pts[0].Y != 2 {
		t.Fatalf("scaled touch = %+v, want {4 2}", pts[0])
	}

	if err := p.CopyRectToOverlay(make([]byte, panelW*panelH*2), panelW*2, 0, 0, panelW, panelH); err != nil {
		t.Fatalf("CopyRectToOverlay: %v", err)
	}

	pts2 := make([]TouchPoint, 1)
	n, err = p.GetTouch(pts2)
	if err != nil {
		t.Fatalf("GetTouch: %v", err)
	}
	if n != 1 {
		t.Fatalf("GetTouch returned n=%d, want 1", n)
	}
	if pts2[0].X != 8 || pts2[0].Y != 4 {
		t.Fatalf("overlay-visible touch = %+v, want raw {8 4}", pts2[0])
	}
}
