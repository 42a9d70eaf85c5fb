package render

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"piclock/internal/canvas"
	appLog "piclock/internal/log"
)

// DumpPanel is a Panel that writes each frame to Dir instead of hardware:
// frame.bin holds the raw panel bytes, frame.png a viewable copy.
type DumpPanel struct {
	Dir    string
	Width  int
	Height int

	mu     sync.Mutex
	frames int
}

func (p *DumpPanel) Init() error {
	return os.MkdirAll(p.Dir, 0o755)
}

func (p *DumpPanel) DisplayFull(buf []byte) error    { return p.write("full", buf) }
func (p *DumpPanel) DisplayPartial(buf []byte) error { return p.write("partial", buf) }

// Frames reports how many frames were written.
func (p *DumpPanel) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func (p *DumpPanel) write(mode string, buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := canvas.FromBytes(p.Width, p.Height, buf)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.Dir, "frame.bin"), buf, 0o644); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	f, err := os.Create(filepath.Join(p.Dir, "frame.png"))
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if err := png.Encode(f, c); err != nil {
		f.Close()
		return fmt.Errorf("dump: encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	p.frames++
	appLog.Debug("frame dumped", "dir", p.Dir, "mode", mode, "n", p.frames)
	return nil
}

// Tee forwards every call to each panel in order and stops at the first
// error.
func Tee(panels ...Panel) Panel { return tee(panels) }

type tee []Panel

func (t tee) Init() error {
	for _, p := range t {
		if err := p.Init(); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) DisplayFull(buf []byte) error {
	for _, p := range t {
		if err := p.DisplayFull(buf); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) DisplayPartial(buf []byte) error {
	for _, p := range t {
		if err := p.DisplayPartial(buf); err != nil {
			return err
		}
	}
	return nil
}

// Sleep puts to sleep every panel that supports it.
func (t tee) Sleep() error {
	for _, p := range t {
		if s, ok := p.(interface{ Sleep() error }); ok {
			if err := s.Sleep(); err != nil {
				return err
			}
		}
	}
	return nil
}
