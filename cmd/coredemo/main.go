// Command coredemo wires the block cache, graphics pipeline, and HID
// interpreter together against in-memory/fake peripherals — there is no
// real MIPI-DSI panel, SD card, or USB host in this process, only the
// collaborators the core packages expect, following the shape of
// cmd/ublk-mem's memory-backed device demo.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/intuitionamiga/coreport/blockcache"
	"github.com/intuitionamiga/coreport/graphicspipeline"
	"github.com/intuitionamiga/coreport/hid"
	"github.com/intuitionamiga/coreport/internal/corelog"
)

func main() {
	verbose := flag.Bool("v", false, "verbose (debug-level) logging")
	flag.Parse()

	logCfg := corelog.DefaultConfig()
	if *verbose {
		logCfg.Level = corelog.LevelDebug
	}
	corelog.SetDefault(corelog.New(logCfg))
	log := corelog.Default().WithPrefix("coredemo")

	if err := runBlockCacheDemo(log); err != nil {
		log.Errorf("block cache demo: %v", err)
		os.Exit(1)
	}
	if err := runGraphicsPipelineDemo(log); err != nil {
		log.Errorf("graphics pipeline demo: %v", err)
		os.Exit(1)
	}
	runHIDDemo(log)
}

// runBlockCacheDemo reproduces scenarios S1 (prefetch) and S2 (write
// invalidates) against an in-memory backend.
func runBlockCacheDemo(log *corelog.Logger) error {
	const blockSize = 4096
	const blockCount = 4
	sectorsPerBlock := uint32(blockSize / 512)

	backend := newMemBackend(blockCount * sectorsPerBlock)
	backend.fillSectorPattern(0, blockCount*sectorsPerBlock)

	h, err := blockcache.Init(blockcache.Config{
		BlockSize: blockSize, BlockCount: blockCount,
		Read: backend.read, Write: backend.write,
	})
	if err != nil {
		return fmt.Errorf("Init: %w", err)
	}

	buf := make([]byte, 8*512)
	if err := h.ReadSectors(buf, 0, 8); err != nil {
		return fmt.Errorf("ReadSectors: %w", err)
	}
	log.Infof("S1: read sectors [0,8) ok, first sector tag=%d last sector tag=%d", buf[0], buf[7*512])

	newData := make([]byte, sectorsPerBlock*512)
	for i := range newData {
		newData[i] = 0xAA
	}
	if err := h.WriteSectors(newData, sectorsPerBlock, sectorsPerBlock); err != nil {
		return fmt.Errorf("WriteSectors: %w", err)
	}
	readBack := make([]byte, sectorsPerBlock*512)
	if err := h.ReadSectors(readBack, sectorsPerBlock, sectorsPerBlock); err != nil {
		return fmt.Errorf("ReadSectors after write: %w", err)
	}
	if readBack[0] != 0xAA {
		return fmt.Errorf("S2: post-write read returned stale data")
	}
	log.Infof("S2: write-then-read of block 1 observed the write")

	count, _ := h.Ioctl(blockcache.CtrlGetSectorCount)
	size, _ := h.Ioctl(blockcache.CtrlGetSectorSize)
	log.Infof("ioctl: sector_count=%d sector_size=%d", count, size)
	return nil
}

// runGraphicsPipelineDemo reproduces scenario S5 (flip preserves palette)
// against a fake panel and a software nearest-neighbor scaler.
func runGraphicsPipelineDemo(log *corelog.Logger) error {
	const panelW, panelH = 320, 240
	const frameW, frameH = 160, 120

	display := newPanelDisplay(panelW, panelH)
	p, err := graphicspipeline.Init(graphicspipeline.Config{
		PanelWidth: panelW, PanelHeight: panelH,
		FrameWidth: frameW, FrameHeight: frameH,
		FrameFormat: graphicspipeline.FormatCLUT8,
		RefreshHz:   60,
	}, display, graphicspipeline.SoftwareScaler{}, nil)
	if err != nil {
		return fmt.Errorf("Init: %w", err)
	}

	pal := make([]graphicspipeline.RGB888, 256)
	pal[1] = graphicspipeline.RGB888{R: 0xF8, G: 0x00, B: 0x00} // red
	if err := p.SetPalette(pal, 0, 256); err != nil {
		return fmt.Errorf("SetPalette: %w", err)
	}

	surf := p.LockScreen()
	for y := 40; y < 80; y++ {
		row := y * surf.Pitch
		for x := 40; x < 120; x++ {
			surf.Pixels[row+x] = 1
		}
	}
	p.UnlockScreen()

	if err := p.UpdateScreen(); err != nil {
		return fmt.Errorf("UpdateScreen: %w", err)
	}

	got, err := p.GrabPalette(0, 1)
	if err != nil {
		return fmt.Errorf("GrabPalette: %w", err)
	}
	log.Infof("S5: palette entry 0 round-trips as %+v", got[0])
	log.Infof("graphics pipeline: panel brightness=%d%%, frame %dx%d scaled to %dx%d", display.brightness, frameW, frameH, panelW, panelH)
	return nil
}

// demoKeyboardDescriptor is a minimal HID report descriptor: a single
// 6-slot Key array field, the shape scenario S3 exercises.
var demoKeyboardDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x65, //   Logical Maximum (101)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x06, //   Report Count (6)
	0x19, 0x00, //   Usage Minimum (0)
	0x29, 0x65, //   Usage Maximum (101)
	0x81, 0x00, //   Input (Data, Array)
	0xC0, // End Collection
}

// runHIDDemo reproduces scenario S3 (keyboard rollover) through a Registry.
func runHIDDemo(log *corelog.Logger) {
	reg := hid.NewRegistry()
	if _, err := reg.AddDevice(1, demoKeyboardDescriptor); err != nil {
		log.Errorf("hid demo: AddDevice: %v", err)
		return
	}

	reports := [][]byte{
		{0, 0, 0, 0, 0, 0},
		{4, 5, 0, 0, 0, 0},
		{5, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
	for _, r := range reports {
		reg.ParseReport(1, r, 0, func(e hid.Event) {
			log.Infof("S3: event kind=%s keycode=%d", e.Kind, e.KeyCode)
		})
	}
}
