// Package session ties the drawing pipeline together: pointer events are
// captured and rendered, a finished drag is sampled and classified, and
// the resulting label is published.
package session

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/juruen/rmdigit/classifier"
	"github.com/juruen/rmdigit/config"
	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/render"
	"github.com/juruen/rmdigit/sampler"
	"github.com/juruen/rmdigit/stroke"
)

const (
	StatusLoading = "Loading model, please wait..."
	StatusReady   = "Model loaded! Write down digits!"
	statusFailed  = "Model failed to load: %v"
)

type Options struct {
	Width, Height int
	Pen           render.Pen
	Sampler       *sampler.Sampler
	Policy        inference.Policy
	// Timeout bounds one classifier call, 0 means no limit.
	Timeout     time.Duration
	MaxInflight int64
}

// DefaultOptions is a 400x400 surface with the default pen, sampler and
// argmax policy.
func DefaultOptions() Options {
	return Options{
		Width:       400,
		Height:      400,
		Pen:         render.DefaultPen,
		Sampler:     sampler.Default(),
		Policy:      inference.ArgMax{},
		MaxInflight: 2,
	}
}

// OptionsFromConfig builds session options from the configuration.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	color, err := render.ParseColor(cfg.Pen.Color)
	if err != nil {
		return Options{}, err
	}
	smp, err := sampler.New(cfg.Sampler.Size, cfg.Sampler.Resampler, cfg.Sampler.Scale)
	if err != nil {
		return Options{}, err
	}
	policy, err := inference.NewPolicy(cfg.Match.Policy, cfg.Match.Floor, cfg.Match.Value)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Width:       cfg.Surface.Width,
		Height:      cfg.Surface.Height,
		Pen:         render.Pen{Width: cfg.Pen.Width, Color: color},
		Sampler:     smp,
		Policy:      policy,
		Timeout:     cfg.Classifier.Timeout,
		MaxInflight: cfg.Classifier.MaxInflight,
	}, nil
}

// Snapshot is what a display shows.
type Snapshot struct {
	Status     string                     `json:"status"`
	Label      inference.Label            `json:"label"`
	State      string                     `json:"state"`
	Generation uint64                     `json:"generation"`
	Scores     inference.PredictionVector `json:"scores,omitempty"`
}

// Session owns one surface, its current label and a reference to the
// shared classifier handle. All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	layout   *stroke.FixedLayout
	capture  *stroke.Capture
	renderer *render.Renderer
	sampler  *sampler.Sampler
	policy   inference.Policy
	handle   *classifier.Handle
	timeout  time.Duration
	sem      *semaphore.Weighted

	status string
	label  inference.Label
	scores inference.PredictionVector
	// generation changes on every pointer down and clear; a result is
	// applied only if it still matches.
	generation uint64

	listeners []func(Snapshot)
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(handle *classifier.Handle, opts Options) *Session {
	if opts.Sampler == nil {
		opts.Sampler = sampler.Default()
	}
	if opts.Policy == nil {
		opts.Policy = inference.ArgMax{}
	}
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	layout := stroke.NewFixedLayout(opts.Width, opts.Height)
	s := &Session{
		layout:   layout,
		capture:  stroke.NewCapture(layout),
		renderer: render.NewRenderer(opts.Width, opts.Height, opts.Pen),
		sampler:  opts.Sampler,
		policy:   opts.Policy,
		handle:   handle,
		timeout:  opts.Timeout,
		sem:      semaphore.NewWeighted(opts.MaxInflight),
		status:   StatusLoading,
		ctx:      ctx,
		cancel:   cancel,
	}

	select {
	case <-handle.Done():
		s.status = loadStatus(handle)
	default:
		go s.watchLoad()
	}
	return s
}

func loadStatus(h *classifier.Handle) string {
	if _, err := h.Classifier(); err != nil {
		return fmt.Sprintf(statusFailed, err)
	}
	return StatusReady
}

func (s *Session) watchLoad() {
	select {
	case <-s.handle.Done():
	case <-s.ctx.Done():
		return
	}
	s.mu.Lock()
	s.status = loadStatus(s.handle)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Subscribe registers fn to be called after status or label changes.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// MoveSurface records a new client position of the surface.
func (s *Session) MoveSurface(x, y float64) {
	s.layout.MoveTo(x, y)
}

// Dispatch handles one pointer event. Moves draw immediately; a pointer
// up samples the surface and schedules inference, a pointer leave ends the
// drag without it.
func (s *Session) Dispatch(ev stroke.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.capture.Dispatch(ev)
	if out.Started {
		s.generation++
	}
	if out.HasSegment {
		s.renderer.DrawSegment(out.Segment)
	}
	switch out.Ended {
	case stroke.Released:
		s.scheduleLocked()
	case stroke.Left:
		log.Trace.Printf("drag %d left the surface", s.generation)
	}
}

func (s *Session) scheduleLocked() {
	if s.closed {
		return
	}
	c, err := s.handle.Classifier()
	if err != nil {
		log.Trace.Printf("drag %d: not classifying: %v", s.generation, err)
		return
	}

	// sampled now so later strokes can't leak into this request
	frame := s.sampler.Sample(s.renderer.Surface())
	gen := s.generation

	s.wg.Add(1)
	go s.classify(c, frame, gen)
}

func (s *Session) classify(c inference.Classifier, frame sampler.Frame, gen uint64) {
	defer s.wg.Done()

	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	label, scores, err := inference.Trigger{Classifier: c, Policy: s.policy}.Run(ctx, frame)
	if err != nil {
		log.Error.Printf("drag %d: %v", gen, err)
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		log.Trace.Printf("drag %d: dropping stale label %q, current drag is %d", gen, label, s.generation)
		s.mu.Unlock()
		return
	}
	s.label = label
	s.scores = scores
	snap := s.snapshotLocked()
	s.mu.Unlock()

	log.Trace.Printf("drag %d: label %q", gen, label)
	s.notify(snap)
}

// Clear blanks the surface and the label and ends any drag. Results of
// requests still in flight are dropped.
func (s *Session) Clear() {
	s.mu.Lock()
	s.renderer.Clear()
	s.capture.Reset()
	s.label = inference.Empty
	s.scores = nil
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) Label() inference.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) State() stroke.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.State()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Status:     s.status,
		Label:      s.label,
		State:      s.capture.State().String(),
		Generation: s.generation,
		Scores:     append(inference.PredictionVector(nil), s.scores...),
	}
}

// Frame samples the current surface.
func (s *Session) Frame() sampler.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampler.Sample(s.renderer.Surface())
}

// Surface returns a copy of the raster surface.
func (s *Session) Surface() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.renderer.Surface()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// Wait blocks until every scheduled inference has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight inference and waits for it to stop. Later
// pointer ups still draw but classify nothing.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
