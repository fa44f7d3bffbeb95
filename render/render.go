// Package render draws strokes onto the raster surface.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/vector"

	"github.com/juruen/rmdigit/stroke"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// Pen holds the render only state.
type Pen struct {
	Width float64
	Color color.RGBA
}

// DefaultPen matches the web canvas setup: 11px, round caps, #111111.
var DefaultPen = Pen{Width: 11, Color: color.RGBA{0x11, 0x11, 0x11, 0xff}}

// Renderer owns the raster surface. Strokes accumulate until Clear.
// It is not safe for concurrent use; the session serializes access.
type Renderer struct {
	surface *image.RGBA
	pen     Pen
	src     *image.Uniform
	raster  *vector.Rasterizer
}

func NewRenderer(width, height int, pen Pen) *Renderer {
	return &Renderer{
		surface: image.NewRGBA(image.Rect(0, 0, width, height)),
		pen:     pen,
		src:     image.NewUniform(pen.Color),
		raster:  vector.NewRasterizer(width, height),
	}
}

// Surface is a read only view of the raster surface.
func (r *Renderer) Surface() image.Image {
	return r.surface
}

func (r *Renderer) Bounds() image.Rectangle {
	return r.surface.Bounds()
}

// Clear makes every pixel transparent.
func (r *Renderer) Clear() {
	clear(r.surface.Pix)
}

// DrawSegment strokes seg with a round capped line of the pen width.
// Coincident endpoints draw nothing.
func (r *Renderer) DrawSegment(seg stroke.Segment) {
	dx := seg.To.X - seg.From.X
	dy := seg.To.Y - seg.From.Y
	length := math.Hypot(dx, dy)
	if length == 0 || r.pen.Width <= 0 {
		return
	}

	radius := r.pen.Width / 2
	// unit direction scaled to the radius, and its normal
	ux, uy := dx/length*radius, dy/length*radius
	nx, ny := -uy, ux

	b := r.surface.Bounds()
	r.raster.Reset(b.Dx(), b.Dy())
	r.raster.DrawOp = draw.Over

	p0, p1 := seg.From, seg.To
	moveTo(r.raster, p0.X+nx, p0.Y+ny)
	lineTo(r.raster, p1.X+nx, p1.Y+ny)
	// cap around p1, from +n through +u to -n
	cubeTo(r.raster,
		p1.X+nx+ux*kappa, p1.Y+ny+uy*kappa,
		p1.X+ux+nx*kappa, p1.Y+uy+ny*kappa,
		p1.X+ux, p1.Y+uy)
	cubeTo(r.raster,
		p1.X+ux-nx*kappa, p1.Y+uy-ny*kappa,
		p1.X-nx+ux*kappa, p1.Y-ny+uy*kappa,
		p1.X-nx, p1.Y-ny)
	lineTo(r.raster, p0.X-nx, p0.Y-ny)
	// cap around p0, from -n through -u back to +n
	cubeTo(r.raster,
		p0.X-nx-ux*kappa, p0.Y-ny-uy*kappa,
		p0.X-ux-nx*kappa, p0.Y-uy-ny*kappa,
		p0.X-ux, p0.Y-uy)
	cubeTo(r.raster,
		p0.X-ux+nx*kappa, p0.Y-uy+ny*kappa,
		p0.X+nx-ux*kappa, p0.Y+ny-uy*kappa,
		p0.X+nx, p0.Y+ny)
	r.raster.ClosePath()

	r.raster.Draw(r.surface, b, r.src, image.Point{})
}

func moveTo(z *vector.Rasterizer, x, y float64) {
	z.MoveTo(float32(x), float32(y))
}

func lineTo(z *vector.Rasterizer, x, y float64) {
	z.LineTo(float32(x), float32(y))
}

func cubeTo(z *vector.Rasterizer, bx, by, cx, cy, dx, dy float64) {
	z.CubeTo(float32(bx), float32(by), float32(cx), float32(cy), float32(dx), float32(dy))
}

// ParseColor reads a #rgb or #rrggbb color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
