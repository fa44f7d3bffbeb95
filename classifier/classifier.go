// Package classifier loads digit classifiers and exposes them behind
// inference.Classifier.
//
// Loading is asynchronous: Load returns a Handle at once and the model is
// fetched in the background. Callers ask the handle for the classifier and
// get ErrNotReady until loading is done.
package classifier

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/config"
	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/log"
)

// ErrNotReady is returned while the model is still loading.
var ErrNotReady = errors.New("classifier is not ready")

// Kinds of classifier artifacts.
const (
	KindLayers    = "layers"
	KindTFServing = "tfserving"
)

// Loader turns an artifact location into a classifier.
type Loader interface {
	Load(ctx context.Context) (inference.Classifier, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (inference.Classifier, error)

func (f LoaderFunc) Load(ctx context.Context) (inference.Classifier, error) {
	return f(ctx)
}

// NewLoader builds the loader described by cfg.
func NewLoader(cfg config.Classifier, hc *http.Client) (Loader, error) {
	location := strings.ReplaceAll(cfg.Location, "{version}", cfg.Version)
	switch cfg.Kind {
	case KindLayers, "":
		return NewLayersLoader(location, hc, !cfg.NoCache), nil
	case KindTFServing:
		return NewTFServing(location, cfg.Model, cfg.Version, hc), nil
	}
	return nil, errors.Errorf("unknown classifier kind %q", cfg.Kind)
}

// Handle is the result of an asynchronous load.
type Handle struct {
	done chan struct{}

	mu  sync.RWMutex
	c   inference.Classifier
	err error
}

// Load starts loading in the background.
func Load(ctx context.Context, l Loader) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		c, err := safeLoad(ctx, l)
		if err == nil && c == nil {
			err = errors.New("loader returned no classifier")
		}

		h.mu.Lock()
		h.c, h.err = c, err
		h.mu.Unlock()

		if err != nil {
			log.Error.Printf("failed to load classifier: %v", err)
			return
		}
		log.Info.Println("classifier loaded")
	}()
	return h
}

// safeLoad turns a panic in l into a load error.
func safeLoad(ctx context.Context, l Loader) (c inference.Classifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, errors.Errorf("loader panicked: %v", r)
		}
	}()
	return l.Load(ctx)
}

// Ready wraps an already loaded classifier.
func Ready(c inference.Classifier) *Handle {
	h := &Handle{done: make(chan struct{}), c: c}
	close(h.done)
	return h
}

// Done is closed once loading has finished, successfully or not.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Classifier returns the loaded classifier without blocking. It fails with
// ErrNotReady while loading and with the load error afterwards.
func (h *Handle) Classifier() (inference.Classifier, error) {
	select {
	case <-h.done:
	default:
		return nil, ErrNotReady
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.c, h.err
}

// Wait blocks until loading finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		_, err := h.Classifier()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
