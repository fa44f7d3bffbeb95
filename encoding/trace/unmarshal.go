package trace

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/stroke"
)

// eventLen is the encoded size of one event.
const eventLen = 12

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (t *Trace) UnmarshalBinary(data []byte) error {
	r := reader{bytes.NewReader(data)}
	if err := r.checkHeader(); err != nil {
		return err
	}

	n, err := r.readNumber()
	if err != nil {
		return err
	}
	if int64(n)*eventLen > int64(r.Len()) {
		return errors.Errorf("trace announces %d events but holds %d bytes", n, r.Len())
	}

	t.Events = make([]stroke.Event, n)
	for i := range t.Events {
		ev, err := r.readEvent()
		if err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
		t.Events[i] = ev
	}
	return nil
}

type reader struct {
	*bytes.Reader
}

func (r reader) checkHeader() error {
	buf := make([]byte, HeaderLen)
	n, err := r.Read(buf)
	if err != nil || n != HeaderLen {
		return errors.New("wrong header size")
	}
	if string(buf) != HeaderV1 {
		return ErrUnknownHeader
	}
	return nil
}

func (r reader) readNumber() (uint32, error) {
	var nb uint32
	if err := binary.Read(r, binary.LittleEndian, &nb); err != nil {
		return 0, errors.New("wrong number read")
	}
	return nb, nil
}

func (r reader) readEvent() (stroke.Event, error) {
	var raw struct {
		Kind uint32
		X, Y float32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return stroke.Event{}, errors.New("failed to read event")
	}
	if raw.Kind > uint32(stroke.Leave) {
		return stroke.Event{}, errors.Errorf("unknown event kind %d", raw.Kind)
	}
	return stroke.Event{
		Kind:    stroke.Kind(raw.Kind),
		ClientX: float64(raw.X),
		ClientY: float64(raw.Y),
	}, nil
}
