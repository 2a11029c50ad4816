package server

import (
	"net/http"
	"strings"
)

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)     // GET - liveness probe
	mux.HandleFunc("/api/crawl", s.handleStartCrawl)  // POST - start a crawl job
	mux.HandleFunc("/api/jobs", s.handleListJobs)     // GET - list all jobs
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)   // GET /{id}, POST /{id}/cancel, GET /{id}/result
	mux.HandleFunc("/ws", s.ws.HandleWebSocket)       // websocket progress stream

	return mux
}

// handleJobRoutes dispatches /api/jobs/{id}[/...] sub-routes.
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	jobID := parts[0]

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.handleGetJob(w, r, jobID)
	case action == "cancel" && r.Method == http.MethodPost:
		s.handleCancelJob(w, r, jobID)
	case action == "result" && r.Method == http.MethodGet:
		s.handleJobResult(w, r, jobID)
	default:
		http.NotFound(w, r)
	}
}
