package sampler

import "strings"

const ramp = " .:-=+*#%@"

// Preview draws the frame as text, one line per row. Values are mapped
// onto a ten step ramp relative to full, the value of a fully inked pixel.
func (f Frame) Preview(full float32) string {
	if full <= 0 {
		full = 255
	}
	var b strings.Builder
	for y := 0; y < f.Size; y++ {
		for x := 0; x < f.Size; x++ {
			v := f.At(y, x) / full
			i := int(v * float32(len(ramp)-1))
			i = min(max(i, 0), len(ramp)-1)
			if v > 0 && i == 0 {
				i = 1
			}
			b.WriteByte(ramp[i])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
