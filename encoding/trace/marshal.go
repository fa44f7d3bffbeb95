package trace

import (
	"bytes"
	"encoding/binary"

	"github.com/juruen/rmdigit/stroke"
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (t *Trace) MarshalBinary() ([]byte, error) {
	w := new(writer)

	w.writeHeader()
	w.writeNumber(len(t.Events))
	for _, ev := range t.Events {
		w.writeEvent(ev)
	}

	return w.Bytes(), nil
}

type writer struct {
	b bytes.Buffer
}

func (w *writer) Bytes() []byte {
	return w.b.Bytes()
}

func (w *writer) writeHeader() {
	w.b.WriteString(HeaderV1)
}

func (w *writer) writeNumber(n int) {
	binary.Write(&w.b, binary.LittleEndian, uint32(n))
}

func (w *writer) writeFloat32(n float32) {
	binary.Write(&w.b, binary.LittleEndian, n)
}

func (w *writer) writeEvent(ev stroke.Event) {
	w.writeNumber(int(ev.Kind))
	w.writeFloat32(float32(ev.ClientX))
	w.writeFloat32(float32(ev.ClientY))
}
