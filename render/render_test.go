package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/rmdigit/stroke"
)

func alphaAt(r *Renderer, x, y int) uint8 {
	return r.surface.RGBAAt(x, y).A
}

func TestDrawSegmentInksAlongLine(t *testing.T) {
	r := NewRenderer(100, 100, DefaultPen)
	r.DrawSegment(stroke.Segment{From: stroke.Point{X: 20, Y: 50}, To: stroke.Point{X: 80, Y: 50}})

	assert.Equal(t, uint8(0xff), alphaAt(r, 50, 50))
	assert.Equal(t, uint8(0xff), alphaAt(r, 50, 53))
	assert.Equal(t, uint8(0), alphaAt(r, 50, 60))
	// round caps extend past the endpoints
	assert.NotZero(t, alphaAt(r, 17, 50))
	assert.Equal(t, uint8(0), alphaAt(r, 10, 50))
	assert.Equal(t, DefaultPen.Color, r.surface.RGBAAt(50, 50))
}

func TestStrokesAccumulate(t *testing.T) {
	r := NewRenderer(100, 100, DefaultPen)
	r.DrawSegment(stroke.Segment{From: stroke.Point{X: 10, Y: 10}, To: stroke.Point{X: 90, Y: 10}})
	r.DrawSegment(stroke.Segment{From: stroke.Point{X: 10, Y: 90}, To: stroke.Point{X: 90, Y: 90}})

	assert.NotZero(t, alphaAt(r, 50, 10))
	assert.NotZero(t, alphaAt(r, 50, 90))
}

func TestCoincidentEndpointsDrawNothing(t *testing.T) {
	r := NewRenderer(50, 50, DefaultPen)
	p := stroke.Point{X: 25, Y: 25}
	r.DrawSegment(stroke.Segment{From: p, To: p})
	for _, v := range r.surface.Pix {
		require.Zero(t, v)
	}
}

func TestClearIdempotent(t *testing.T) {
	r := NewRenderer(60, 40, DefaultPen)
	blank := NewRenderer(60, 40, DefaultPen)

	r.DrawSegment(stroke.Segment{From: stroke.Point{X: 0, Y: 0}, To: stroke.Point{X: 60, Y: 40}})
	r.Clear()
	assert.Equal(t, blank.surface.Pix, r.surface.Pix)
	r.Clear()
	assert.Equal(t, blank.surface.Pix, r.surface.Pix)
}

func TestDeterministic(t *testing.T) {
	a := NewRenderer(80, 80, DefaultPen)
	b := NewRenderer(80, 80, DefaultPen)
	segs := []stroke.Segment{
		{From: stroke.Point{X: 3.5, Y: 7.25}, To: stroke.Point{X: 40, Y: 60}},
		{From: stroke.Point{X: 40, Y: 60}, To: stroke.Point{X: 77, Y: 12}},
	}
	for _, s := range segs {
		a.DrawSegment(s)
		b.DrawSegment(s)
	}
	assert.Equal(t, a.surface.Pix, b.surface.Pix)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#111111")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0x11, 0x11, 0x11, 0xff}, c)

	c, err = ParseColor("f0a")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0xff, 0x00, 0xaa, 0xff}, c)

	_, err = ParseColor("#12")
	assert.Error(t, err)
	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)
}
