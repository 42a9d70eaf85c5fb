package canvas

import "fmt"

// GlyphSize is the width and height of one unscaled character cell.
const GlyphSize = 8

// TextSize returns the pixel size of text rendered at scale.
func TextSize(text string, scale int) (w, h int) {
	return len(text) * GlyphSize * scale, GlyphSize * scale
}

// DrawScaledText renders text with the built-in 8x8 font, each font pixel
// expanded to a scale×scale block, with the top-left corner at (x, y). Glyph
// pixels are drawn in ink and the rest of the text box in the opposite color,
// so the box overwrites what was beneath it. Bytes outside printable ASCII are
// drawn as '?'. The scaled box must fit inside c.
func DrawScaledText(c *Canvas, text string, x, y, scale int, ink Color) error {
	if scale <= 0 {
		return fmt.Errorf("%w: text scale %d", ErrInvalidArgument, scale)
	}
	if text == "" {
		return nil
	}
	if ink != Black {
		ink = White
	}
	paper := White
	if ink == White {
		paper = Black
	}

	tmp, err := New(len(text)*GlyphSize, GlyphSize)
	if err != nil {
		return err
	}
	tmp.Fill(paper)
	for i := 0; i < len(text); i++ {
		drawGlyph(tmp, text[i], i*GlyphSize, ink)
	}

	// scaled width stays a multiple of 8 because tmp's is.
	scaled, err := New(tmp.width*scale, tmp.height*scale)
	if err != nil {
		return err
	}
	scaled.Fill(paper)
	for py := 0; py < tmp.height; py++ {
		for px := 0; px < tmp.width; px++ {
			if tmp.get(px, py) != ink {
				continue
			}
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					scaled.set(px*scale+sx, py*scale+sy, ink)
				}
			}
		}
	}

	if err := c.Blit(scaled, x, y); err != nil {
		return fmt.Errorf("draw text %q: %w", text, err)
	}
	return nil
}

func drawGlyph(dst *Canvas, ch byte, ox int, ink Color) {
	if ch < 0x20 || ch > 0x7E {
		ch = '?'
	}
	g := &font8x8[ch-0x20]
	for row := 0; row < GlyphSize; row++ {
		bits := g[row]
		for col := 0; col < GlyphSize; col++ {
			if bits&(1<<col) != 0 {
				dst.set(ox+col, row, ink)
			}
		}
	}
}
