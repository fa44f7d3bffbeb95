package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/juruen/rmdigit/api"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/sampler"
	"github.com/juruen/rmdigit/session"
	"github.com/juruen/rmdigit/stroke"
	"github.com/juruen/rmdigit/version"
)

const msgpackType = "application/x-msgpack"

type ApiServer struct {
	registry *api.Registry
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type eventJSON struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type eventsRequest struct {
	Origin *point      `json:"origin,omitempty"`
	Events []eventJSON `json:"events"`
}

type frameJSON struct {
	Size  int       `json:"size"`
	Shape [4]int    `json:"shape"`
	Data  []float32 `json:"data"`
	Blank bool      `json:"blank"`
}

func NewApiServer(registry *api.Registry) *ApiServer {
	return &ApiServer{registry: registry}
}

func (s *ApiServer) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func (s *ApiServer) writeSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	s.writeStatus(w, r, http.StatusOK, data)
}

// writeStatus answers in msgpack when format=msgpack is requested and in
// JSON otherwise.
func (s *ApiServer) writeStatus(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", msgpackType)
		w.WriteHeader(status)
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		enc.Encode(SuccessResponse{Data: data})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(SuccessResponse{Data: data})
}

func decodeBody(r *http.Request, v interface{}) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), msgpackType) {
		dec := msgpack.NewDecoder(r.Body)
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}
	return json.NewDecoder(r.Body).Decode(v)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, id string, sess *session.Session)

// withSession checks the bearer token against the {id} route variable and
// resolves the session.
func (s *ApiServer) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := s.registry.Authorize(id, r.Header.Get("Authorization")); err != nil {
			log.Trace.Printf("session %s: %v", id, err)
			s.writeError(w, http.StatusUnauthorized, api.ErrBadToken)
			return
		}
		sess, err := s.registry.Get(id)
		if err != nil {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		h(w, r, id, sess)
	}
}

// POST /api/sessions
func (s *ApiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, token, err := s.registry.Create()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeStatus(w, r, http.StatusCreated, map[string]string{"id": id, "token": token})
}

// GET /api/sessions/{id}
func (s *ApiServer) handleState(w http.ResponseWriter, r *http.Request, _ string, sess *session.Session) {
	s.writeSuccess(w, r, sess.Snapshot())
}

// POST /api/sessions/{id}/events?wait=<bool>
func (s *ApiServer) handleEvents(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	var req eventsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid event batch"))
		return
	}

	events := make([]stroke.Event, len(req.Events))
	for i, e := range req.Events {
		kind, err := stroke.ParseKind(e.Type)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.Wrapf(err, "event %d", i))
			return
		}
		events[i] = stroke.Event{Kind: kind, ClientX: e.X, ClientY: e.Y}
	}

	if req.Origin != nil {
		sess.MoveSurface(req.Origin.X, req.Origin.Y)
	}
	for _, ev := range events {
		sess.Dispatch(ev)
	}
	log.Trace.Printf("session %s: dispatched %d events", id, len(events))

	if r.URL.Query().Get("wait") == "true" {
		sess.Wait()
	}
	s.writeSuccess(w, r, sess.Snapshot())
}

// POST /api/sessions/{id}/clear
func (s *ApiServer) handleClear(w http.ResponseWriter, r *http.Request, _ string, sess *session.Session) {
	sess.Clear()
	s.writeSuccess(w, r, sess.Snapshot())
}

// GET /api/sessions/{id}/frame
func (s *ApiServer) handleFrame(w http.ResponseWriter, r *http.Request, _ string, sess *session.Session) {
	f := sess.Frame()
	s.writeSuccess(w, r, frameJSON{Size: f.Size, Shape: f.Shape(), Data: f.Data, Blank: f.Blank()})
}

// GET /api/sessions/{id}/surface.png
func (s *ApiServer) handleSurface(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s.png\"", id))
	if err := imaging.Encode(w, sess.Surface(), imaging.PNG); err != nil {
		log.Error.Printf("session %s: can't encode surface: %v", id, err)
	}
}

// DELETE /api/sessions/{id}
func (s *ApiServer) handleDelete(w http.ResponseWriter, r *http.Request, id string, _ *session.Session) {
	if err := s.registry.Delete(id); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeSuccess(w, r, map[string]string{"id": id})
}

// GET /api/version
func (s *ApiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, r, map[string]interface{}{
		"version":    version.Version,
		"frame_size": sampler.Size,
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Trace.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *ApiServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	routes := router.PathPrefix("/api").Subrouter()
	routes.HandleFunc("/version", s.handleVersion).Methods("GET")
	routes.HandleFunc("/sessions", s.handleCreate).Methods("POST")
	routes.HandleFunc("/sessions/{id}", s.withSession(s.handleState)).Methods("GET")
	routes.HandleFunc("/sessions/{id}", s.withSession(s.handleDelete)).Methods("DELETE")
	routes.HandleFunc("/sessions/{id}/events", s.withSession(s.handleEvents)).Methods("POST")
	routes.HandleFunc("/sessions/{id}/clear", s.withSession(s.handleClear)).Methods("POST")
	routes.HandleFunc("/sessions/{id}/frame", s.withSession(s.handleFrame)).Methods("GET")
	routes.HandleFunc("/sessions/{id}/surface.png", s.withSession(s.handleSurface)).Methods("GET")

	return router
}

func runServerMode(addr string, registry *api.Registry) {
	server := NewApiServer(registry)
	defer registry.Close()

	log.Info.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Error.Fatalf("Server failed: %v", err)
	}
}
