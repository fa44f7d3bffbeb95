package inference

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/rmdigit/sampler"
)

type fixed struct {
	v   PredictionVector
	err error
	got sampler.Frame
}

func (f *fixed) Predict(_ context.Context, frame sampler.Frame) (PredictionVector, error) {
	f.got = frame
	return f.v, f.err
}

func TestArgMax(t *testing.T) {
	tests := []struct {
		name  string
		floor float32
		v     PredictionVector
		want  Label
	}{
		{"highest", 0, PredictionVector{0.1, 0.7, 0.2}, "1"},
		{"tie picks lowest index", 0, PredictionVector{0.4, 0.1, 0.4}, "0"},
		{"below floor", 0.9, PredictionVector{0.1, 0.7, 0.2}, Unrecognized},
		{"empty", 0, nil, Unrecognized},
		{"nan skipped", 0, PredictionVector{float32(math.NaN()), 0.2, 0.3}, "2"},
		{"all nan", 0, PredictionVector{float32(math.NaN())}, Unrecognized},
		{"last digit", 0.5, PredictionVector{0, 0, 0, 0, 0, 0, 0, 0, 0, 0.99}, "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArgMax{Floor: tt.floor}.Reduce(tt.v))
		})
	}
}

func TestExactMatch(t *testing.T) {
	p := ExactMatch{Value: 1}
	assert.Equal(t, Label("3"), p.Reduce(PredictionVector{0, 0, 0, 1, 0}))
	assert.Equal(t, Label("1"), p.Reduce(PredictionVector{0, 1, 1}))
	assert.Equal(t, Unrecognized, p.Reduce(PredictionVector{0.0001, 0.9999}))
	assert.Equal(t, Unrecognized, p.Reduce(nil))
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", 0.2, 1)
	require.NoError(t, err)
	assert.Equal(t, ArgMax{Floor: 0.2}, p)

	p, err = NewPolicy(PolicyExact, 0.2, 1)
	require.NoError(t, err)
	assert.Equal(t, ExactMatch{Value: 1}, p)

	_, err = NewPolicy("vote", 0, 0)
	assert.Error(t, err)
}

func TestTriggerRun(t *testing.T) {
	c := &fixed{v: PredictionVector{0.05, 0.05, 0.9}}
	frame := sampler.Frame{Size: 1, Data: []float32{7}}

	label, v, err := Trigger{Classifier: c}.Run(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, Label("2"), label)
	assert.Equal(t, c.v, v)
	assert.Equal(t, frame, c.got)
}

func TestTriggerRunError(t *testing.T) {
	boom := errors.New("boom")
	label, _, err := Trigger{Classifier: &fixed{err: boom}, Policy: ArgMax{}}.Run(context.Background(), sampler.Frame{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Empty, label)
}
