package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

const maxBodyBytes = 1 << 20

// CreatePatternRequest is the request body for creating a pattern
type CreatePatternRequest struct {
	Name   string           `json:"name"`
	Type   string           `json:"type,omitempty"`
	Values *property.Record `json:"values,omitempty"`
}

// AttachChildRequest is the request body for attaching a child pattern
type AttachChildRequest struct {
	ChildID string `json:"child_id"`
}

// ExportPatternRequest is the optional request body for exporting a pattern
type ExportPatternRequest struct {
	Backend   string `json:"backend,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

// ErrorResponse is the body written for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// PatternHandler handles HTTP requests for patterns using pkg/simplepattern
type PatternHandler struct {
	service   simplepattern.Service
	tokenAuth *jwtauth.JWTAuth
}

// HandlerOption configures a PatternHandler
type HandlerOption func(*PatternHandler)

// WithTokenAuth requires a valid bearer token on routes that modify patterns
func WithTokenAuth(tokenAuth *jwtauth.JWTAuth) HandlerOption {
	return func(h *PatternHandler) {
		h.tokenAuth = tokenAuth
	}
}

// NewPatternHandler creates a new pattern handler
func NewPatternHandler(service simplepattern.Service, opts ...HandlerOption) *PatternHandler {
	h := &PatternHandler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for patterns
func (h *PatternHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPatterns)
	r.Get("/{id}", h.GetPattern)
	r.Get("/{id}/values/{name}", h.GetValue)
	r.Get("/{id}/render", h.RenderPattern)

	r.Group(func(r chi.Router) {
		if h.tokenAuth != nil {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
		}

		r.Post("/", h.CreatePattern)
		r.Delete("/{id}", h.DeletePattern)
		r.Put("/{id}/values", h.SetValues)
		r.Put("/{id}/children/{slot}", h.AttachChild)
		r.Delete("/{id}/children/{slot}", h.DetachChild)
		r.Post("/{id}/export", h.ExportPattern)
	})

	return r
}

// CreatePattern creates a new pattern
func (h *PatternHandler) CreatePattern(w http.ResponseWriter, r *http.Request) {
	var req CreatePatternRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	pattern, err := h.service.CreatePattern(r.Context(), simplepattern.CreatePatternRequest{
		Name:   req.Name,
		Type:   req.Type,
		Values: req.Values,
	})
	if err != nil {
		h.handleError(w, r, "Failed to create pattern", err)
		return
	}

	slog.Info("Pattern created", "pattern_id", pattern.ID.String(), "name", pattern.Name)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, pattern)
}

// ListPatterns lists patterns, optionally filtered by type
func (h *PatternHandler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	req := simplepattern.ListPatternsRequest{Type: r.URL.Query().Get("type")}

	var err error
	if req.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	patterns, err := h.service.ListPatterns(r.Context(), req)
	if err != nil {
		h.handleError(w, r, "Failed to list patterns", err)
		return
	}

	render.JSON(w, r, patterns)
}

// GetPattern returns a stored pattern
func (h *PatternHandler) GetPattern(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	pattern, err := h.service.GetPattern(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "Failed to get pattern", err)
		return
	}

	render.JSON(w, r, pattern)
}

// DeletePattern deletes a pattern that no other pattern references
func (h *PatternHandler) DeletePattern(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePattern(r.Context(), id); err != nil {
		h.handleError(w, r, "Failed to delete pattern", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetValues applies a JSON object onto the pattern values in document order
func (h *PatternHandler) SetValues(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	values := property.NewRecord()
	if err := decodeBody(r, values, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	pattern, err := h.service.SetValues(r.Context(), simplepattern.SetValuesRequest{ID: id, Values: values})
	if err != nil {
		h.handleError(w, r, "Failed to set values", err)
		return
	}

	render.JSON(w, r, pattern)
}

// GetValue returns a single value, or null when the name is absent
func (h *PatternHandler) GetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	value, err := h.service.GetValue(r.Context(), id, chi.URLParam(r, "name"))
	if err != nil {
		h.handleError(w, r, "Failed to get value", err)
		return
	}

	render.JSON(w, r, value)
}

// AttachChild attaches a child pattern under a slot
func (h *PatternHandler) AttachChild(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	var req AttachChildRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid child ID"))
		return
	}

	pattern, err := h.service.AttachChild(r.Context(), simplepattern.AttachChildRequest{
		ParentID: id,
		Slot:     chi.URLParam(r, "slot"),
		ChildID:  childID,
	})
	if err != nil {
		h.handleError(w, r, "Failed to attach child", err)
		return
	}

	render.JSON(w, r, pattern)
}

// DetachChild removes the child attached under a slot
func (h *PatternHandler) DetachChild(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	pattern, err := h.service.DetachChild(r.Context(), id, chi.URLParam(r, "slot"))
	if err != nil {
		h.handleError(w, r, "Failed to detach child", err)
		return
	}

	render.JSON(w, r, pattern)
}

// RenderPattern returns the rendered record of a pattern tree
func (h *PatternHandler) RenderPattern(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	rendered, err := h.service.RenderPattern(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "Failed to render pattern", err)
		return
	}

	render.JSON(w, r, rendered)
}

// ExportPattern renders a pattern and writes it to a storage backend
func (h *PatternHandler) ExportPattern(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	var req ExportPatternRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.ExportPattern(r.Context(), simplepattern.ExportPatternRequest{
		ID:        id,
		Backend:   req.Backend,
		ObjectKey: req.ObjectKey,
	})
	if err != nil {
		h.handleError(w, r, "Failed to export pattern", err)
		return
	}

	slog.Info("Pattern exported", "pattern_id", id.String(), "backend", result.Backend, "object_key", result.ObjectKey)
	render.JSON(w, r, result)
}

func (h *PatternHandler) handleError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, "path", r.URL.Path, "error", err)
	}
	writeError(w, r, status, err)
}

func statusFor(err error) int {
	switch {
	case simplepattern.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, simplepattern.ErrPatternCycle), errors.Is(err, simplepattern.ErrPatternInUse):
		return http.StatusConflict
	case errors.Is(err, simplepattern.ErrInvalidPattern),
		errors.Is(err, simplepattern.ErrPropertyNotWritable),
		errors.Is(err, simplepattern.ErrMaxDepthExceeded):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func patternID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid pattern ID"))
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
