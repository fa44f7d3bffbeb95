// Package api keeps the drawing sessions served over HTTP and the tokens
// that grant access to them.
package api

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/classifier"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/session"
)

var ErrNoSession = errors.New("no such session")

// Registry owns the live sessions. They all share one classifier handle.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	handle   *classifier.Handle
	opts     session.Options
	tokens   *Tokens
}

func NewRegistry(handle *classifier.Handle, opts session.Options, tokens *Tokens) *Registry {
	return &Registry{
		sessions: make(map[string]*session.Session),
		handle:   handle,
		opts:     opts,
		tokens:   tokens,
	}
}

// Create starts a session and returns its id and access token.
func (r *Registry) Create() (id, token string, err error) {
	id = uuid.New().String()
	token, err = r.tokens.Issue(id)
	if err != nil {
		return "", "", err
	}

	s := session.New(r.handle, r.opts)
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	log.Info.Printf("session %s created", id)
	return id, token, nil
}

func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Delete closes the session and forgets it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	s.Close()
	log.Info.Printf("session %s deleted", id)
	return nil
}

// Authorize checks an Authorization header value against session id.
func (r *Registry) Authorize(id, header string) error {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return ErrBadToken
	}
	sub, err := r.tokens.Parse(token)
	if err != nil {
		return err
	}
	if sub != id {
		return ErrBadToken
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close shuts every session down.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session.Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
