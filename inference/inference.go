// Package inference runs the classifier on a sampled frame and reduces its
// output to a label.
package inference

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/sampler"
)

// PredictionVector holds one score per class, in class order.
type PredictionVector []float32

// Label is the recognized class index as text, Unrecognized, or Empty.
type Label string

const (
	Empty        Label = ""
	Unrecognized Label = ":("
)

// ClassLabel renders a class index.
func ClassLabel(i int) Label {
	return Label(strconv.Itoa(i))
}

// Classifier maps a frame to per class scores.
type Classifier interface {
	Predict(ctx context.Context, frame sampler.Frame) (PredictionVector, error)
}

// Policy reduces a prediction vector to a label.
type Policy interface {
	Reduce(v PredictionVector) Label
}

// ArgMax picks the highest scoring class. The lowest index wins ties and
// scores below Floor are not recognized.
type ArgMax struct {
	Floor float32
}

func (p ArgMax) Reduce(v PredictionVector) Label {
	best := -1
	for i, s := range v {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			continue
		}
		if best < 0 || s > v[best] {
			best = i
		}
	}
	if best < 0 || v[best] < p.Floor {
		return Unrecognized
	}
	return ClassLabel(best)
}

// ExactMatch picks the first class whose score equals Value exactly. With
// continuous model outputs it rarely matches; it exists for parity with
// the web frontend, which compared every score against 1.
type ExactMatch struct {
	Value float32
}

func (p ExactMatch) Reduce(v PredictionVector) Label {
	for i, s := range v {
		if s == p.Value {
			return ClassLabel(i)
		}
	}
	return Unrecognized
}

// Policy names used in configuration.
const (
	PolicyArgMax = "argmax"
	PolicyExact  = "exact"
)

// NewPolicy builds a policy by name. floor applies to argmax and value
// to exact.
func NewPolicy(name string, floor, value float32) (Policy, error) {
	switch name {
	case "", PolicyArgMax:
		return ArgMax{Floor: floor}, nil
	case PolicyExact:
		return ExactMatch{Value: value}, nil
	}
	return nil, fmt.Errorf("unknown match policy %q", name)
}

// Trigger runs one inference.
type Trigger struct {
	Classifier Classifier
	Policy     Policy
}

// Run classifies frame. It never sees the raster surface, only the frame
// sampled from it.
func (t Trigger) Run(ctx context.Context, frame sampler.Frame) (Label, PredictionVector, error) {
	v, err := t.Classifier.Predict(ctx, frame)
	if err != nil {
		return Empty, nil, errors.Wrap(err, "predict")
	}
	policy := t.Policy
	if policy == nil {
		policy = ArgMax{}
	}
	return policy.Reduce(v), v, nil
}
