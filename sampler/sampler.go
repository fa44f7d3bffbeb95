// Package sampler turns the raster surface into the classifier input.
package sampler

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Size is the spatial resolution the digit models are trained on.
const Size = 28

// Resampler names.
const (
	Area     = "area"
	Bilinear = "bilinear"
	Nearest  = "nearest"
)

// Frame is a single channel image tensor with shape (1, Size, Size, 1)
// stored row major.
type Frame struct {
	Size int
	Data []float32
}

// Shape is the 4-dimensional tensor layout: batch, height, width, channel.
func (f Frame) Shape() [4]int {
	return [4]int{1, f.Size, f.Size, 1}
}

// At returns the value at row y, column x.
func (f Frame) At(y, x int) float32 {
	return f.Data[y*f.Size+x]
}

// Tensor expands the frame into nested slices matching Shape.
func (f Frame) Tensor() [][][][]float32 {
	rows := make([][][]float32, f.Size)
	for y := range rows {
		rows[y] = make([][]float32, f.Size)
		for x := range rows[y] {
			rows[y][x] = []float32{f.At(y, x)}
		}
	}
	return [][][][]float32{rows}
}

// Blank reports whether no pixel carries ink.
func (f Frame) Blank() bool {
	for _, v := range f.Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Sampler downsamples surfaces. The zero value is not usable, use New.
type Sampler struct {
	size      int
	resampler string
	scale     float32
}

// New returns a sampler. scale multiplies every value after the cast; 1
// keeps the native 0..255 pixel range.
func New(size int, resampler string, scale float32) (*Sampler, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid frame size %d", size)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	switch resampler {
	case "":
		resampler = Area
	case Area, Bilinear, Nearest:
	default:
		return nil, fmt.Errorf("unknown resampler %q", resampler)
	}
	return &Sampler{size: size, resampler: resampler, scale: scale}, nil
}

// Default is the 28x28 area sampler with native pixel range.
func Default() *Sampler {
	return &Sampler{size: Size, resampler: Area, scale: 1}
}

// Full is the value of a fully inked pixel.
func (s *Sampler) Full() float32 {
	return 255 * s.scale
}

// Sample reads the whole surface and returns a fresh frame. The surface
// is only read. Ink intensity is the pixel alpha, so a blank surface
// gives an all zero frame.
func (s *Sampler) Sample(surface image.Image) Frame {
	small := s.resize(intensity(surface))

	f := Frame{Size: s.size, Data: make([]float32, s.size*s.size)}
	b := small.Bounds()
	for y := 0; y < s.size; y++ {
		for x := 0; x < s.size; x++ {
			g := color.GrayModel.Convert(small.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			f.Data[y*s.size+x] = float32(g.Y) * s.scale
		}
	}
	return f
}

func (s *Sampler) resize(img *image.Gray) image.Image {
	n := uint(s.size)
	switch s.resampler {
	case Bilinear:
		return resize.Resize(n, n, img, resize.Bilinear)
	case Nearest:
		return resize.Resize(n, n, img, resize.NearestNeighbor)
	default:
		return imaging.Resize(img, s.size, s.size, imaging.Box)
	}
}

// intensity reduces the surface to one channel holding ink coverage.
func intensity(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			row := rgba.Pix[y*rgba.Stride:]
			out := dst.Pix[y*dst.Stride:]
			for x := 0; x < b.Dx(); x++ {
				out[x] = row[x*4+3]
			}
		}
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst.Pix[y*dst.Stride+x] = uint8(a >> 8)
		}
	}
	return dst
}
