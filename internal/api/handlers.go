package api

import (
	"context"
	"encoding/json"
	"flatwatch/internal/discovery"
	"flatwatch/internal/domain"
	"flatwatch/internal/storage"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type discoverRequest struct {
	Listings []struct {
		URL       string `json:"url"`
		ListingID string `json:"listing_id"`
	} `json:"listings"`
	Force bool `json:"force"`
}

func (s *Server) handleDiscoverRequest(w http.ResponseWriter, r *http.Request) {
	if !s.config.DiscoveryEnabled {
		s.respondWithError(w, http.StatusServiceUnavailable, "Contact discovery is disabled")
		return
	}

	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Listings) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "Listings list cannot be empty")
		return
	}

	for _, l := range req.Listings {
		if _, err := url.ParseRequestURI(l.URL); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid URL in list: "+l.URL)
			return
		}
		s.runner.Submit(discovery.Task{
			ListingURL: l.URL,
			ListingID:  l.ListingID,
			Force:      req.Force,
		})
	}

	s.respondWithJSON(w, http.StatusAccepted, map[string]any{
		"message":  "Listings accepted for contact discovery",
		"accepted": len(req.Listings),
	})
}

func (s *Server) handleContactsRequest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		contacts []storage.StoredContact
		err      error
	)
	switch {
	case q.Get("listing_id") != "":
		contacts, err = s.pgStore.GetContactsByListing(r.Context(), q.Get("listing_id"))
	case q.Get("source_url") != "":
		contacts, err = s.pgStore.GetContactsBySource(r.Context(), q.Get("source_url"))
	case q.Get("method") != "":
		contacts, err = s.pgStore.GetContactsByMethod(r.Context(), domain.ContactMethod(q.Get("method")))
	case q.Get("q") != "":
		limit := 50
		if n, convErr := strconv.Atoi(q.Get("limit")); convErr == nil && n > 0 {
			limit = n
		}
		contacts, err = s.pgStore.SearchContacts(r.Context(), q.Get("q"), limit)
	default:
		s.respondWithError(w, http.StatusBadRequest, "One of listing_id, source_url, method or q is required")
		return
	}

	if err != nil {
		s.logger.Error("contact query failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve contacts")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"count":    len(contacts),
		"contacts": contacts,
	})
}

func (s *Server) handleStatsRequest(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetContactStats(r.Context())
	if err != nil {
		s.logger.Error("failed to collect contact statistics", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve statistics")
		return
	}

	s.respondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCleanupRequest(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondWithError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	removed, err := s.service.CleanupOldContacts(r.Context(), days)
	if err != nil {
		s.logger.Error("contact cleanup failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.pgStore.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.redisStore.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["postgres"] == "healthy" && healthStatus["redis"] == "healthy"
	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
