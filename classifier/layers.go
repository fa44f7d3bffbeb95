package classifier

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/sampler"
)

// tensor is a channels last activation map. Vectors have h = w = 1.
type tensor struct {
	h, w, c int
	data    []float64
}

func newTensor(h, w, c int) tensor {
	return tensor{h: h, w: w, c: c, data: make([]float64, h*w*c)}
}

type layer interface {
	forward(in tensor) (tensor, error)
}

// LayersModel evaluates a sequential TensorFlow.js layers model. Only the
// layer types used by small digit classifiers are supported. It is safe
// for concurrent use.
type LayersModel struct {
	inH, inW, inC int
	layers        []layer
	names         []string
}

// Predict implements inference.Classifier.
func (m *LayersModel) Predict(ctx context.Context, frame sampler.Frame) (inference.PredictionVector, error) {
	if len(frame.Data) != m.inH*m.inW*m.inC {
		return nil, errors.Errorf("frame has %d values, model expects %dx%dx%d", len(frame.Data), m.inH, m.inW, m.inC)
	}

	t := newTensor(m.inH, m.inW, m.inC)
	for i, v := range frame.Data {
		t.data[i] = float64(v)
	}

	for i, l := range m.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if t, err = l.forward(t); err != nil {
			return nil, errors.Wrapf(err, "layer %s", m.names[i])
		}
	}

	out := make(inference.PredictionVector, len(t.data))
	for i, v := range t.data {
		out[i] = float32(v)
	}
	return out, nil
}

// weightStore hands out named tensors decoded from the shards.
type weightStore struct {
	specs  []WeightSpec
	values map[string][]float64
}

func decodeWeights(manifest []WeightsGroup, data []byte) (*weightStore, error) {
	ws := &weightStore{values: map[string][]float64{}}
	off := 0
	for _, g := range manifest {
		for _, spec := range g.Weights {
			if spec.Dtype != "" && spec.Dtype != "float32" {
				return nil, fmt.Errorf("weight %s: unsupported dtype %s", spec.Name, spec.Dtype)
			}
			n := 1
			for _, d := range spec.Shape {
				if d <= 0 {
					return nil, fmt.Errorf("weight %s: invalid shape %v", spec.Name, spec.Shape)
				}
				n *= d
			}
			if off+n*4 > len(data) {
				return nil, fmt.Errorf("weight %s: shards too short", spec.Name)
			}
			v := make([]float64, n)
			for i := range v {
				v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+i*4:])))
			}
			off += n * 4
			ws.specs = append(ws.specs, spec)
			ws.values[spec.Name] = v
		}
	}
	return ws, nil
}

// lookup finds "<layer>/<kind>", allowing any scope prefix.
func (ws *weightStore) lookup(layerName, kind string) ([]float64, []int, error) {
	want := layerName + "/" + kind
	for _, s := range ws.specs {
		if s.Name == want || strings.HasSuffix(s.Name, "/"+want) {
			return ws.values[s.Name], s.Shape, nil
		}
	}
	return nil, nil, fmt.Errorf("missing weight %s", want)
}

func parseTopology(raw json.RawMessage) ([]layerJSON, error) {
	var top topology
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errors.Wrap(err, "invalid model topology")
	}
	if top.ModelConfig != nil {
		top = *top.ModelConfig
	}
	if top.ClassName != "Sequential" {
		return nil, errors.Errorf("unsupported model class %q", top.ClassName)
	}

	var seq sequentialConfig
	if err := json.Unmarshal(top.Config, &seq); err != nil {
		// older Keras exports store the layer list directly
		var layers []layerJSON
		if err := json.Unmarshal(top.Config, &layers); err != nil {
			return nil, errors.Wrap(err, "invalid sequential config")
		}
		return layers, nil
	}
	return seq.Layers, nil
}

// NewLayersModel builds a model from a parsed model.json and the
// concatenated weight shards in manifest order.
func NewLayersModel(art *LayersArtifact, weights []byte) (*LayersModel, error) {
	specs, err := parseTopology(art.ModelTopology)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, errors.New("model has no layers")
	}
	ws, err := decodeWeights(art.WeightsManifest, weights)
	if err != nil {
		return nil, err
	}

	m := &LayersModel{inH: sampler.Size, inW: sampler.Size, inC: 1}
	if shape := specs[0].Config.BatchInputShape; len(shape) > 0 {
		if m.inH, m.inW, m.inC, err = inputShape(shape); err != nil {
			return nil, err
		}
	}

	// track the channel count to size conv kernels and validate dense
	h, w, c := m.inH, m.inW, m.inC
	for _, spec := range specs {
		cfg := spec.Config
		var l layer
		switch spec.ClassName {
		case "InputLayer", "Dropout", "SpatialDropout2D", "GaussianNoise":
			continue
		case "Conv2D":
			cl, err := newConv2D(cfg, c, ws)
			if err != nil {
				return nil, err
			}
			h, _ = outDim(h, cl.kh, cl.sh, cl.same)
			w, _ = outDim(w, cl.kw, cl.sw, cl.same)
			c = cl.filters
			l = cl
		case "MaxPooling2D":
			pl, err := newMaxPool(cfg)
			if err != nil {
				return nil, err
			}
			h, _ = outDim(h, pl.ph, pl.sh, pl.same)
			w, _ = outDim(w, pl.pw, pl.sw, pl.same)
			l = pl
		case "Flatten":
			h, w, c = 1, 1, h*w*c
			l = flatten{}
		case "Reshape":
			rl, err := newReshape(cfg)
			if err != nil {
				return nil, err
			}
			h, w, c = rl.h, rl.w, rl.c
			l = rl
		case "Dense":
			dl, err := newDense(cfg, h*w*c, ws)
			if err != nil {
				return nil, err
			}
			h, w, c = 1, 1, cfg.Units
			l = dl
		case "Activation", "Softmax", "ReLU":
			act := cfg.Activation
			if act == "" {
				act = strings.ToLower(spec.ClassName)
			}
			l = activation{name: act}
		default:
			return nil, errors.Errorf("unsupported layer %s (%s)", cfg.Name, spec.ClassName)
		}
		log.Trace.Printf("layers model: %s %s -> %dx%dx%d", spec.ClassName, cfg.Name, h, w, c)
		m.layers = append(m.layers, l)
		m.names = append(m.names, cfg.Name)
	}

	return m, nil
}

func inputShape(shape []*int) (int, int, int, error) {
	dims := make([]int, 0, len(shape))
	for _, d := range shape[1:] {
		if d == nil {
			return 0, 0, 0, errors.New("input shape has unknown dimensions")
		}
		if *d <= 0 {
			return 0, 0, 0, errors.Errorf("invalid input dimension %d", *d)
		}
		dims = append(dims, *d)
	}
	switch len(dims) {
	case 1:
		return 1, 1, dims[0], nil
	case 2:
		return dims[0], dims[1], 1, nil
	case 3:
		return dims[0], dims[1], dims[2], nil
	}
	return 0, 0, 0, errors.Errorf("unsupported input rank %d", len(dims))
}

// pair reads a two element Keras tuple, defaulting to def.
func pair(v []int, def int) (int, int) {
	switch len(v) {
	case 0:
		return def, def
	case 1:
		return v[0], v[0]
	}
	return v[0], v[1]
}

// outDim returns the output length and the leading padding.
func outDim(in, k, s int, same bool) (int, int) {
	if same {
		out := (in + s - 1) / s
		pad := (out-1)*s + k - in
		if pad < 0 {
			pad = 0
		}
		return out, pad / 2
	}
	return (in-k)/s + 1, 0
}

type conv2D struct {
	filters, inC int
	kh, kw       int
	sh, sw       int
	same         bool
	act          string
	kernel       []float64 // kh, kw, inC, filters
	bias         []float64
}

func newConv2D(cfg layerConfig, inC int, ws *weightStore) (*conv2D, error) {
	l := &conv2D{
		filters: cfg.Filters,
		inC:     inC,
		same:    cfg.Padding == "same",
		act:     cfg.Activation,
	}
	if cfg.DataFormat == "channels_first" {
		return nil, errors.Errorf("conv %s: channels_first is not supported", cfg.Name)
	}
	l.kh, l.kw = pair(cfg.KernelSize, 3)
	l.sh, l.sw = pair(cfg.Strides, 1)
	if l.filters <= 0 || l.kh < 1 || l.kw < 1 || l.sh < 1 || l.sw < 1 {
		return nil, errors.Errorf("conv %s: invalid filters %d, kernel %dx%d or strides %dx%d",
			cfg.Name, l.filters, l.kh, l.kw, l.sh, l.sw)
	}

	kernel, shape, err := ws.lookup(cfg.Name, "kernel")
	if err != nil {
		return nil, err
	}
	if len(shape) != 4 || shape[0] != l.kh || shape[1] != l.kw || shape[2] != inC || shape[3] != l.filters {
		return nil, errors.Errorf("conv %s: kernel shape %v does not match %dx%dx%dx%d", cfg.Name, shape, l.kh, l.kw, inC, l.filters)
	}
	l.kernel = kernel
	if cfg.UseBias == nil || *cfg.UseBias {
		if l.bias, _, err = ws.lookup(cfg.Name, "bias"); err != nil {
			return nil, err
		}
		if len(l.bias) != l.filters {
			return nil, errors.Errorf("conv %s: bias has %d values, want %d", cfg.Name, len(l.bias), l.filters)
		}
	}
	return l, nil
}

func (l *conv2D) forward(in tensor) (tensor, error) {
	if in.c != l.inC {
		return tensor{}, fmt.Errorf("expected %d channels, got %d", l.inC, in.c)
	}
	oh, padT := outDim(in.h, l.kh, l.sh, l.same)
	ow, padL := outDim(in.w, l.kw, l.sw, l.same)
	if oh <= 0 || ow <= 0 {
		return tensor{}, fmt.Errorf("input %dx%d smaller than kernel", in.h, in.w)
	}

	out := newTensor(oh, ow, l.filters)
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			acc := out.data[(oy*ow+ox)*l.filters:][:l.filters]
			if l.bias != nil {
				copy(acc, l.bias)
			}
			for ky := 0; ky < l.kh; ky++ {
				iy := oy*l.sh + ky - padT
				if iy < 0 || iy >= in.h {
					continue
				}
				for kx := 0; kx < l.kw; kx++ {
					ix := ox*l.sw + kx - padL
					if ix < 0 || ix >= in.w {
						continue
					}
					for ic := 0; ic < in.c; ic++ {
						v := in.data[(iy*in.w+ix)*in.c+ic]
						if v == 0 {
							continue
						}
						k := l.kernel[((ky*l.kw+kx)*l.inC+ic)*l.filters:][:l.filters]
						for f, kv := range k {
							acc[f] += v * kv
						}
					}
				}
			}
		}
	}
	return out, activate(out, l.act)
}

type maxPool struct {
	ph, pw int
	sh, sw int
	same   bool
}

func newMaxPool(cfg layerConfig) (*maxPool, error) {
	l := &maxPool{same: cfg.Padding == "same"}
	l.ph, l.pw = pair(cfg.PoolSize, 2)
	if len(cfg.Strides) == 0 {
		l.sh, l.sw = l.ph, l.pw
	} else {
		l.sh, l.sw = pair(cfg.Strides, 1)
	}
	if l.ph < 1 || l.pw < 1 || l.sh < 1 || l.sw < 1 {
		return nil, errors.Errorf("pool %s: invalid pool %dx%d or strides %dx%d", cfg.Name, l.ph, l.pw, l.sh, l.sw)
	}
	return l, nil
}

func (l *maxPool) forward(in tensor) (tensor, error) {
	oh, padT := outDim(in.h, l.ph, l.sh, l.same)
	ow, padL := outDim(in.w, l.pw, l.sw, l.same)
	if oh <= 0 || ow <= 0 {
		return tensor{}, fmt.Errorf("input %dx%d smaller than pool", in.h, in.w)
	}

	out := newTensor(oh, ow, in.c)
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			for ch := 0; ch < in.c; ch++ {
				best := math.Inf(-1)
				for py := 0; py < l.ph; py++ {
					iy := oy*l.sh + py - padT
					if iy < 0 || iy >= in.h {
						continue
					}
					for px := 0; px < l.pw; px++ {
						ix := ox*l.sw + px - padL
						if ix < 0 || ix >= in.w {
							continue
						}
						best = math.Max(best, in.data[(iy*in.w+ix)*in.c+ch])
					}
				}
				out.data[(oy*ow+ox)*in.c+ch] = best
			}
		}
	}
	return out, nil
}

type flatten struct{}

func (flatten) forward(in tensor) (tensor, error) {
	return tensor{h: 1, w: 1, c: len(in.data), data: in.data}, nil
}

type reshape struct {
	h, w, c int
}

func newReshape(cfg layerConfig) (*reshape, error) {
	s := cfg.TargetShape
	for _, d := range s {
		if d <= 0 {
			return nil, errors.Errorf("reshape %s: invalid target %v", cfg.Name, s)
		}
	}
	switch len(s) {
	case 1:
		return &reshape{1, 1, s[0]}, nil
	case 2:
		return &reshape{s[0], s[1], 1}, nil
	case 3:
		return &reshape{s[0], s[1], s[2]}, nil
	}
	return nil, errors.Errorf("reshape %s: unsupported target %v", cfg.Name, s)
}

func (l *reshape) forward(in tensor) (tensor, error) {
	if l.h*l.w*l.c != len(in.data) {
		return tensor{}, fmt.Errorf("can't reshape %d values to %dx%dx%d", len(in.data), l.h, l.w, l.c)
	}
	return tensor{h: l.h, w: l.w, c: l.c, data: in.data}, nil
}

type dense struct {
	units  int
	act    string
	kernel *mat.Dense // in x units
	bias   *mat.VecDense
}

func newDense(cfg layerConfig, in int, ws *weightStore) (*dense, error) {
	if cfg.Units <= 0 || in <= 0 {
		return nil, errors.Errorf("dense %s: invalid size %dx%d", cfg.Name, in, cfg.Units)
	}
	kernel, shape, err := ws.lookup(cfg.Name, "kernel")
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[0] != in || shape[1] != cfg.Units {
		return nil, errors.Errorf("dense %s: kernel shape %v does not match %dx%d", cfg.Name, shape, in, cfg.Units)
	}
	l := &dense{
		units:  cfg.Units,
		act:    cfg.Activation,
		kernel: mat.NewDense(in, cfg.Units, kernel),
	}
	if cfg.UseBias == nil || *cfg.UseBias {
		bias, _, err := ws.lookup(cfg.Name, "bias")
		if err != nil {
			return nil, err
		}
		if len(bias) != cfg.Units {
			return nil, errors.Errorf("dense %s: bias has %d values, want %d", cfg.Name, len(bias), cfg.Units)
		}
		l.bias = mat.NewVecDense(cfg.Units, bias)
	}
	return l, nil
}

func (l *dense) forward(in tensor) (tensor, error) {
	if in.h != 1 || in.w != 1 {
		return tensor{}, fmt.Errorf("dense input must be flat, got %dx%dx%d", in.h, in.w, in.c)
	}
	rows, _ := l.kernel.Dims()
	if in.c != rows {
		return tensor{}, fmt.Errorf("expected %d inputs, got %d", rows, in.c)
	}

	var y mat.VecDense
	y.MulVec(l.kernel.T(), mat.NewVecDense(in.c, in.data))
	if l.bias != nil {
		y.AddVec(&y, l.bias)
	}

	out := newTensor(1, 1, l.units)
	for i := range out.data {
		out.data[i] = y.AtVec(i)
	}
	return out, activate(out, l.act)
}

type activation struct {
	name string
}

func (l activation) forward(in tensor) (tensor, error) {
	out := tensor{h: in.h, w: in.w, c: in.c, data: append([]float64(nil), in.data...)}
	return out, activate(out, l.name)
}

// activate applies fn in place. Softmax runs over the channel axis.
func activate(t tensor, fn string) error {
	switch fn {
	case "", "linear":
	case "relu":
		for i, v := range t.data {
			if v < 0 {
				t.data[i] = 0
			}
		}
	case "sigmoid":
		for i, v := range t.data {
			t.data[i] = 1 / (1 + math.Exp(-v))
		}
	case "tanh":
		for i, v := range t.data {
			t.data[i] = math.Tanh(v)
		}
	case "softmax":
		for p := 0; p < len(t.data); p += t.c {
			softmax(t.data[p : p+t.c])
		}
	default:
		return fmt.Errorf("unsupported activation %q", fn)
	}
	return nil
}

func softmax(v []float64) {
	hi := math.Inf(-1)
	for _, x := range v {
		hi = math.Max(hi, x)
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - hi)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

// LayersLoader loads a layers model from a URL or a path.
type LayersLoader struct {
	location string
	client   *http.Client
	cache    bool
}

func NewLayersLoader(location string, hc *http.Client, cache bool) *LayersLoader {
	return &LayersLoader{location: location, client: hc, cache: cache}
}

// Load implements Loader.
func (l *LayersLoader) Load(ctx context.Context) (inference.Classifier, error) {
	f, err := newFetcher(l.location, l.client, l.cache)
	if err != nil {
		return nil, err
	}

	raw, err := f.fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	var art LayersArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", l.location)
	}

	var weights []byte
	for _, g := range art.WeightsManifest {
		for _, p := range g.Paths {
			b, err := f.fetch(ctx, p)
			if err != nil {
				return nil, err
			}
			weights = append(weights, b...)
		}
	}
	log.Trace.Printf("layers model: %d bytes of weights from %s", len(weights), l.location)

	m, err := NewLayersModel(&art, weights)
	if err != nil {
		return nil, err
	}
	return m, nil
}
