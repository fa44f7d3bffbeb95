package stroke

import "sync"

// FixedLayout is a Layout whose origin can be moved by the host when the
// surface shifts on screen. It is safe for concurrent use.
type FixedLayout struct {
	mu     sync.RWMutex
	x, y   float64
	width  float64
	height float64
}

func NewFixedLayout(width, height int) *FixedLayout {
	return &FixedLayout{width: float64(width), height: float64(height)}
}

func (l *FixedLayout) Origin() (float64, float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.x, l.y
}

func (l *FixedLayout) Size() (float64, float64) {
	return l.width, l.height
}

// MoveTo sets the client position of the surface top left corner.
func (l *FixedLayout) MoveTo(x, y float64) {
	l.mu.Lock()
	l.x, l.y = x, y
	l.mu.Unlock()
}
