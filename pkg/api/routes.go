// Route registration for the control API.

package api

import "net/http"

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	// Capture inspection
	mux.HandleFunc("GET /list", s.handleList)
	mux.HandleFunc("GET /get_raw", s.handleGetRaw)
	mux.HandleFunc("POST /clear", s.handleClear)

	// Replay
	mux.HandleFunc("POST /replay_raw", s.handleReplayRaw)

	mux.HandleFunc("/", s.handleUnknown)
}
