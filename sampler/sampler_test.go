package sampler

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/rmdigit/render"
	"github.com/juruen/rmdigit/stroke"
)

var diagonal = stroke.Segment{From: stroke.Point{X: 10, Y: 10}, To: stroke.Point{X: 390, Y: 390}}

func samplers(t *testing.T) map[string]*Sampler {
	out := map[string]*Sampler{}
	for _, name := range []string{Area, Bilinear, Nearest} {
		s, err := New(Size, name, 1)
		require.NoError(t, err)
		out[name] = s
	}
	return out
}

func TestBlankSurfaceGivesBlankFrame(t *testing.T) {
	r := render.NewRenderer(400, 400, render.DefaultPen)
	for name, s := range samplers(t) {
		f := s.Sample(r.Surface())
		assert.Equal(t, [4]int{1, 28, 28, 1}, f.Shape(), name)
		assert.Len(t, f.Data, 28*28, name)
		assert.True(t, f.Blank(), name)
	}
}

func TestDiagonalHasInk(t *testing.T) {
	r := render.NewRenderer(400, 400, render.DefaultPen)
	r.DrawSegment(diagonal)

	for name, s := range samplers(t) {
		f := s.Sample(r.Surface())
		assert.False(t, f.Blank(), name)

		var onDiagonal float32
		for i := 1; i < Size-1; i++ {
			onDiagonal += f.At(i, i)
		}
		corner := f.At(0, Size/2) + f.At(Size/2, 0)
		assert.Greater(t, onDiagonal/float32(Size-2), corner, name)
		assert.Zero(t, corner, name)
		assert.Greater(t, f.At(Size/2, Size/2), float32(0), name)
	}
}

func TestClearThenSampleEqualsFresh(t *testing.T) {
	s := Default()
	fresh := s.Sample(render.NewRenderer(400, 400, render.DefaultPen).Surface())

	r := render.NewRenderer(400, 400, render.DefaultPen)
	r.DrawSegment(diagonal)
	r.Clear()

	assert.Equal(t, fresh, s.Sample(r.Surface()))
}

func TestSameSegmentsSameFrame(t *testing.T) {
	s := Default()
	a := render.NewRenderer(400, 400, render.DefaultPen)
	b := render.NewRenderer(400, 400, render.DefaultPen)
	segs := []stroke.Segment{
		diagonal,
		{From: stroke.Point{X: 200, Y: 40}, To: stroke.Point{X: 210, Y: 350}},
	}
	for _, seg := range segs {
		a.DrawSegment(seg)
		b.DrawSegment(seg)
	}
	assert.Equal(t, s.Sample(a.Surface()), s.Sample(b.Surface()))
}

func TestSampleDoesNotMutateSurface(t *testing.T) {
	r := render.NewRenderer(100, 100, render.DefaultPen)
	r.DrawSegment(stroke.Segment{From: stroke.Point{X: 5, Y: 50}, To: stroke.Point{X: 95, Y: 50}})
	surface, ok := r.Surface().(*image.RGBA)
	require.True(t, ok)
	snapshot := append([]uint8(nil), surface.Pix...)

	Default().Sample(surface)
	assert.Equal(t, snapshot, surface.Pix)
}

func TestScaleNormalizes(t *testing.T) {
	r := render.NewRenderer(400, 400, render.DefaultPen)
	r.DrawSegment(diagonal)

	s, err := New(Size, Area, 1.0/255)
	require.NoError(t, err)
	for _, v := range s.Sample(r.Surface()).Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestTensorLayout(t *testing.T) {
	f := Frame{Size: 2, Data: []float32{1, 2, 3, 4}}
	assert.Equal(t, [][][][]float32{{{{1}, {2}}, {{3}, {4}}}}, f.Tensor())
	assert.Equal(t, float32(3), f.At(1, 0))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(0, Area, 1)
	assert.Error(t, err)
	_, err = New(28, "lanczos9", 1)
	assert.Error(t, err)
	_, err = New(28, Area, 0)
	assert.Error(t, err)

	s, err := New(28, "", 1)
	require.NoError(t, err)
	assert.Equal(t, Area, s.resampler)
}

func TestPreview(t *testing.T) {
	f := Frame{Size: 2, Data: []float32{0, 255, 1, 128}}
	assert.Equal(t, " @\n.=\n", f.Preview(255))
	assert.Equal(t, f.Preview(255), f.Preview(0))

	scaled := Frame{Size: 1, Data: []float32{1}}
	assert.Equal(t, "@\n", scaled.Preview(1))
}
