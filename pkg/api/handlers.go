package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Svigo-o/PoCGen/pkg/httputil"
)

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the GET /status body.
type StatusResponse struct {
	Status   string `json:"status"`
	Uptime   int    `json:"uptime"`
	Captures int    `json:"captures"`
	Capacity int    `json:"capacity"`
	Version  string `json:"version"`
}

// ClearResponse is the POST /clear body.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// handleHealth handles GET /health. It never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:   "ok",
		Uptime:   s.Uptime(),
		Captures: s.store.Len(),
		Capacity: s.store.Capacity(),
		Version:  s.version,
	})
}

// handleList handles GET /list and returns capture summaries in insertion
// order.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.store.List())
}

// handleGetRaw handles GET /get_raw?id=<n>. The body is the stored request
// byte-for-byte.
func (s *Server) handleGetRaw(w http.ResponseWriter, r *http.Request) {
	idParam := r.URL.Query().Get("id")
	if idParam == "" {
		httputil.WriteBadRequest(w, "missing id")
		return
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid id")
		return
	}
	rec, ok := s.store.Get(id)
	if !ok {
		httputil.WriteNotFound(w, "not found")
		return
	}
	httputil.WriteOctetStream(w, http.StatusOK, rec.Raw)
}

// handleClear handles POST /clear.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	n := s.store.Clear()
	s.log.Info("captures cleared", "count", n)
	httputil.WriteJSON(w, http.StatusOK, ClearResponse{Cleared: n})
}

// handleReplayRaw handles POST /replay_raw?host=<h>&port=<p>&https=<b>.
// The request body is sent to the destination verbatim and the destination's
// raw response becomes the response body. The capture store is not involved.
func (s *Server) handleReplayRaw(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	host := query.Get("host")
	if strings.TrimSpace(host) == "" {
		httputil.WriteBadRequest(w, "host is required")
		return
	}

	portParam := query.Get("port")
	if portParam == "" {
		portParam = "80"
	}
	port, err := strconv.Atoi(portParam)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid port")
		return
	}

	// Lenient on purpose: only the literal "true" (any case) enables TLS,
	// everything else, including garbage, means plain HTTP.
	secure := strings.EqualFold(query.Get("https"), "true")

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), host, port, secure, raw)
	if err != nil {
		s.log.Warn("replay failed", "host", host, "port", port, "https", secure, "error", err)
		httputil.WriteInternalError(w, "replay failed: "+err.Error())
		return
	}

	s.log.Debug("replay dispatched", "host", host, "port", port, "https", secure,
		"request_bytes", len(raw), "response_bytes", len(resp))
	httputil.WriteOctetStream(w, http.StatusOK, resp)
}

// handleUnknown rejects unrecognized paths with a JSON error.
func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFound(w, "unknown path")
}
