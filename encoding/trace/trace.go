// Package trace stores recorded pointer events in a small binary format
// so that a gesture can be replayed later.
//
// A trace is a HeaderLen byte text header followed by a little endian
// uint32 event count and, per event, a uint32 kind and two float32 client
// coordinates.
package trace

import (
	"io"
	"iter"
	"os"

	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/stroke"
)

const (
	HeaderV1  = "rmdigit gesture trace, version=1           "
	HeaderLen = 43
)

var ErrUnknownHeader = errors.New("unknown trace header")

// Trace is a recorded sequence of pointer events.
type Trace struct {
	Events []stroke.Event
}

// Append records ev.
func (t *Trace) Append(ev stroke.Event) {
	t.Events = append(t.Events, ev)
}

// All yields the recorded events in order.
func (t *Trace) All() iter.Seq[stroke.Event] {
	return func(yield func(stroke.Event) bool) {
		for _, ev := range t.Events {
			if !yield(ev) {
				return
			}
		}
	}
}

// ReadFile loads a trace from disk.
func ReadFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read trace")
	}
	t := &Trace{}
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrapf(err, "can't decode %s", path)
	}
	return t, nil
}

// WriteFile stores the trace at path.
func (t *Trace) WriteFile(path string) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "can't write trace")
}

// WriteTo implements io.WriterTo.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	data, err := t.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
