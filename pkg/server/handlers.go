package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/filestage"
	ferrors "github.com/vango-dev/filestage/internal/errors"
	"github.com/vango-dev/filestage/pkg/input"
	"github.com/vango-dev/filestage/pkg/stage"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

// maxFormMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const maxFormMemory = 32 << 20

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.newSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, stateView(sess.ID, sess.stager))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, stateView(sess.ID, sess.stager))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.close(r.Context(), id) {
		s.writeError(w, r, unknownSession(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
	files, err := readFiles(r, maxFormMemory)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.stager.Pick(r.Context(), files); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateView(sess.ID, sess.stager))
}

// dragRequest is the JSON body of /drag.
type dragRequest struct {
	Type    string `json:"type"`
	ClientX int    `json:"clientX"`
	ClientY int    `json:"clientY"`
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req dragRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		s.writeError(w, r, ferrors.New("S031").WithDetail("drag body must be JSON: "+err.Error()))
		return
	}
	typ, err := input.ParseDragType(req.Type)
	if err != nil {
		s.writeError(w, r, ferrors.New("S031").Wrap(err))
		return
	}

	s.dispatchDrag(w, r, sess, &input.DragEvent{Type: typ, ClientX: req.ClientX, ClientY: req.ClientY})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
	files, err := readFiles(r, maxFormMemory)
	if err != nil {
		// The drop still happened: end the drag without staging anything.
		sess.stager.Drag(r.Context(), &input.DragEvent{Type: input.Drop})
		s.writeError(w, r, err)
		return
	}

	s.dispatchDrag(w, r, sess, &input.DragEvent{Type: input.Drop, Files: files})
}

func (s *Server) dispatchDrag(w http.ResponseWriter, r *http.Request, sess *Session, ev *input.DragEvent) {
	dropped, err := sess.stager.Drag(r.Context(), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, DragView{
		Dragging:         sess.stager.Dragging(),
		DefaultPrevented: ev.DefaultPrevented(),
		Ignored:          ev.Type == input.Drop && !dropped,
		State:            stateView(sess.ID, sess.stager),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.stager.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateView(sess.ID, sess.stager))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := stage.ParseID(chi.URLParam(r, "entry"))
	if err != nil {
		s.writeError(w, r, ferrors.New("S031").WithDetail("entry id must be a number"))
		return
	}
	removed, err := sess.stager.Remove(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RemoveView{Removed: removed, State: stateView(sess.ID, sess.stager)})
}

// session resolves the {id} URL parameter, writing a 404 when the session
// does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.get(id)
	if !ok {
		s.writeError(w, r, unknownSession(id))
		return nil, false
	}
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.AttrSessionID.String(id))
	return sess, true
}

func unknownSession(id string) error {
	return ferrors.New("S030").WithDetail("No session " + id)
}

// errorBody is the JSON error response.
type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
		err = ferrors.New("S031").WithDetail("request body too large")
	case errors.Is(err, filestage.ErrClosed):
		status = http.StatusGone
	}

	body := errorBody{Message: err.Error()}
	var se *ferrors.StageError
	if errors.As(err, &se) {
		body = errorBody{Code: se.Code, Message: se.Message, Detail: se.Detail}
		switch se.Code {
		case "S030":
			status = http.StatusNotFound
		case "S031":
			if status != http.StatusRequestEntityTooLarge {
				status = http.StatusBadRequest
			}
		case "S001":
			status = http.StatusBadGateway
		}
	} else if status == http.StatusInternalServerError {
		// Multipart parse errors are the only untyped errors that reach here.
		status = http.StatusBadRequest
		body.Code = "S031"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "status", status, "error", err)
	}
}
