// Package stroke turns pointer events into line segments.
//
// A Capture is a two state machine (Idle, Dragging). Dispatch is its only
// entry point: a Down starts a drag, every Move while dragging yields one
// Segment joining it to the previous position (the first Move joins the
// Down position, so N moves give N segments) and the first Up or Leave
// ends the drag.
package stroke

import (
	"fmt"
	"iter"
)

// Kind is the type of a pointer event.
type Kind uint32

const (
	Down Kind = iota
	Move
	Up
	Leave
)

func (k Kind) String() string {
	switch k {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Leave:
		return "leave"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "down", "mousedown", "pointerdown":
		return Down, nil
	case "move", "mousemove", "pointermove":
		return Move, nil
	case "up", "mouseup", "pointerup":
		return Up, nil
	case "leave", "mouseleave", "pointerleave":
		return Leave, nil
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// Event is a raw pointer event in client coordinates.
type Event struct {
	Kind    Kind
	ClientX float64
	ClientY float64
}

// Point is a surface local position.
type Point struct {
	X, Y float64
}

// Segment joins two consecutive pointer positions.
type Segment struct {
	From, To Point
}

// Layout reports where the surface currently sits in client space.
type Layout interface {
	// Origin is the top left corner of the surface bounding box.
	Origin() (x, y float64)
	// Size is the surface width and height.
	Size() (w, h float64)
}

// State of a Capture.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// EndReason tells how a drag ended.
type EndReason int

const (
	NotEnded EndReason = iota
	Released            // pointer up
	Left                // pointer left the surface
)

// Outcome is what a single event did to the capture.
type Outcome struct {
	Started    bool
	Segment    Segment
	HasSegment bool
	Ended      EndReason
}

// Capture converts events into segments. It is not safe for concurrent use.
type Capture struct {
	layout Layout
	state  State
	last   Point
}

func NewCapture(layout Layout) *Capture {
	return &Capture{layout: layout}
}

func (c *Capture) State() State {
	return c.state
}

// Reset drops any active drag.
func (c *Capture) Reset() {
	c.state = Idle
}

// Dispatch feeds one event to the state machine.
func (c *Capture) Dispatch(ev Event) Outcome {
	var out Outcome

	switch ev.Kind {
	case Down:
		c.state = Dragging
		c.last = c.toSurface(ev)
		out.Started = true
	case Move:
		if c.state != Dragging {
			return out
		}
		p := c.toSurface(ev)
		out.Segment = Segment{From: c.last, To: p}
		out.HasSegment = true
		c.last = p
	case Up:
		if c.state != Dragging {
			return out
		}
		c.state = Idle
		out.Ended = Released
	case Leave:
		if c.state != Dragging {
			return out
		}
		c.state = Idle
		out.Ended = Left
	}
	return out
}

// toSurface reads the layout on every call so that layout shifts between
// events are honoured.
func (c *Capture) toSurface(ev Event) Point {
	ox, oy := c.layout.Origin()
	w, h := c.layout.Size()
	return Point{
		X: clamp(ev.ClientX-ox, w),
		Y: clamp(ev.ClientY-oy, h),
	}
}

func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Segments lazily yields the segments produced by events. Each range over
// the result starts from a fresh Idle capture.
func Segments(events iter.Seq[Event], layout Layout) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		c := NewCapture(layout)
		for ev := range events {
			out := c.Dispatch(ev)
			if out.HasSegment && !yield(out.Segment) {
				return
			}
		}
	}
}
