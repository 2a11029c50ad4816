package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/pkg/models"
)

// crawlRequest is the POST /api/crawl body. Durations are given in seconds
// to keep the API friendly to curl.
type crawlRequest struct {
	BaseURL          string  `json:"base_url"`
	SitemapURL       string  `json:"sitemap_url,omitempty"`
	MaxPages         int     `json:"max_pages,omitempty"`
	RateLimitSeconds float64 `json:"rate_limit_seconds,omitempty"`
	TimeoutSeconds   float64 `json:"timeout_seconds,omitempty"`
	AllowSubdomains  bool    `json:"allow_subdomains,omitempty"`
	Model            string  `json:"model,omitempty"`
	APIKey           string  `json:"api_key,omitempty"`
	UseVision        *bool   `json:"use_vision,omitempty"`
	SaveOutline      bool    `json:"save_outline,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.BaseURL == "" {
		writeError(w, http.StatusBadRequest, "base_url is required")
		return
	}

	target := models.CrawlTarget{
		BaseURL:         req.BaseURL,
		SitemapURL:      req.SitemapURL,
		MaxPages:        req.MaxPages,
		RateLimit:       time.Duration(req.RateLimitSeconds * float64(time.Second)),
		Timeout:         time.Duration(req.TimeoutSeconds * float64(time.Second)),
		AllowSubdomains: req.AllowSubdomains,
		Model:           req.Model,
		APIKey:          req.APIKey,
		SaveOutline:     req.SaveOutline,
		UseVision:       s.config.Crawler.UseVision,
	}
	if req.UseVision != nil {
		target.UseVision = *req.UseVision
	}

	job, err := s.jobs.StartJob(r.Context(), target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobList, err := s.jobs.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobList)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := s.jobs.CancelJob(jobID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling", "job_id": jobID})
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request, jobID string) {
	archive, err := s.jobs.ZipResults(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sitemark-%s.zip"`, jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
