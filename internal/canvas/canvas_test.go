package canvas

import (
	"errors"
	"image/color"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustNew(t *testing.T, w, h int) *Canvas {
	t.Helper()
	c, err := New(w, h)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// randomCanvas returns a canvas with a reproducible noise pattern.
func randomCanvas(t *testing.T, w, h int, seed int64) *Canvas {
	t.Helper()
	c := mustNew(t, w, h)
	r := rand.New(rand.NewSource(seed))
	r.Read(c.bits)
	return c
}

func TestNew(t *testing.T) {
	c := mustNew(t, 16, 3)
	if diff := cmp.Diff([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, c.Bytes()); diff != "" {
		t.Errorf("new canvas not blank (-want +got):\n%s", diff)
	}

	for _, tc := range []struct{ w, h int }{{0, 8}, {8, 0}, {12, 8}, {-8, 8}} {
		if _, err := New(tc.w, tc.h); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("New(%d, %d) err = %v, want ErrInvalidArgument", tc.w, tc.h, err)
		}
	}
}

func TestFromBytes(t *testing.T) {
	if _, err := FromBytes(16, 2, []byte{1, 2, 3}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	src := []byte{0x00, 0xFF}
	c, err := FromBytes(8, 2, src)
	if err != nil {
		t.Fatal(err)
	}
	src[0] = 0xAA
	if c.Bytes()[0] != 0x00 {
		t.Error("FromBytes must copy its input")
	}
}

func TestPixelLayout(t *testing.T) {
	c := mustNew(t, 16, 2)
	if err := c.SetPixel(0, 0, Black); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPixel(9, 1, Black); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x7F, 0xFF, 0xFF, 0xBF}
	if diff := cmp.Diff(want, c.Bytes()); diff != "" {
		t.Errorf("bits (-want +got):\n%s", diff)
	}
}

func TestSetPixelTouchesOnlyTarget(t *testing.T) {
	const w, h = 24, 10
	for _, col := range []Color{Black, White} {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := randomCanvas(t, w, h, int64(y*w+x))
				before := c.Clone()
				if err := c.SetPixel(x, y, col); err != nil {
					t.Fatal(err)
				}
				got, err := c.Pixel(x, y)
				if err != nil {
					t.Fatal(err)
				}
				if got != col {
					t.Fatalf("Pixel(%d,%d) = %v after SetPixel(%v)", x, y, got, col)
				}
				for py := 0; py < h; py++ {
					for px := 0; px < w; px++ {
						if px == x && py == y {
							continue
						}
						if c.get(px, py) != before.get(px, py) {
							t.Fatalf("SetPixel(%d,%d) changed (%d,%d)", x, y, px, py)
						}
					}
				}
			}
		}
	}
}

func TestOutOfBounds(t *testing.T) {
	c := mustNew(t, 8, 4)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {8, 0}, {0, 4}} {
		if _, err := c.Pixel(p[0], p[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Pixel%v err = %v", p, err)
		}
		if err := c.SetPixel(p[0], p[1], Black); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetPixel%v err = %v", p, err)
		}
	}
}

func TestFillAndFillRect(t *testing.T) {
	c := mustNew(t, 16, 2)
	c.Fill(Black)
	if diff := cmp.Diff([]byte{0, 0, 0, 0}, c.Bytes()); diff != "" {
		t.Errorf("Fill(Black) (-want +got):\n%s", diff)
	}

	// Clipped at the right and bottom edges.
	c.FillRect(12, 1, 10, 10, White)
	if diff := cmp.Diff([]byte{0, 0, 0, 0x0F}, c.Bytes()); diff != "" {
		t.Errorf("FillRect (-want +got):\n%s", diff)
	}
}

func TestBlitUnaligned(t *testing.T) {
	dst := mustNew(t, 16, 2)
	src := mustNew(t, 8, 1)
	src.Fill(Black)

	if err := dst.Blit(src, 3, 1); err != nil {
		t.Fatal(err)
	}
	want := []byte{0xFF, 0xFF, 0xE0, 0x1F}
	if diff := cmp.Diff(want, dst.Bytes()); diff != "" {
		t.Errorf("bits (-want +got):\n%s", diff)
	}
}

func TestBlitOutOfBoundsLeavesCanvas(t *testing.T) {
	dst := randomCanvas(t, 16, 4, 7)
	before := append([]byte(nil), dst.Bytes()...)
	src := mustNew(t, 8, 2)
	src.Fill(Black)

	for _, p := range [][2]int{{9, 0}, {0, 3}, {-1, 0}} {
		if err := dst.Blit(src, p[0], p[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Blit at %v err = %v, want ErrOutOfBounds", p, err)
		}
	}
	if diff := cmp.Diff(before, dst.Bytes()); diff != "" {
		t.Errorf("failed blit modified canvas (-want +got):\n%s", diff)
	}
}

func TestImageInterface(t *testing.T) {
	c := mustNew(t, 8, 1)
	_ = c.SetPixel(2, 0, Black)
	if got := c.At(2, 0); got != (color.Gray{Y: 0}) {
		t.Errorf("At(ink) = %v", got)
	}
	if got := c.At(3, 0); got != (color.Gray{Y: 0xFF}) {
		t.Errorf("At(paper) = %v", got)
	}
	if got := c.Bounds().Dx(); got != 8 {
		t.Errorf("Bounds().Dx() = %d", got)
	}
}
