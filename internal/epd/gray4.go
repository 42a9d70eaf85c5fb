package epd

// splitGray4 converts a 2-bit frame (four pixels per byte, first pixel in the
// low bits) into the two 1-bit RAM planes the 4-level waveform expects. Each
// output byte is MSB first. Level 0 (black) sets both planes, 1 only the
// first, 2 only the second and 3 (white) neither.
func splitGray4(src []byte) (bw, red []byte) {
	bw = make([]byte, len(src)/2)
	red = make([]byte, len(src)/2)
	for i := range bw {
		var b, r byte
		for j := 0; j < 2; j++ {
			v := src[i*2+j]
			for k := 0; k < 4; k++ {
				b <<= 1
				r <<= 1
				switch v & 0x03 {
				case 0x00:
					b |= 1
					r |= 1
				case 0x01:
					b |= 1
				case 0x02:
					r |= 1
				}
				v >>= 2
			}
		}
		bw[i] = b
		red[i] = r
	}
	return bw, red
}
