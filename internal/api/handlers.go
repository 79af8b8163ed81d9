package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleCrawl validates the request, starts the background crawl, and
// returns immediately. The background task reports nothing back here;
// clients observe progress via /stream or /events.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Google.APIKey == "" {
		writeError(w, http.StatusInternalServerError, "Google Places API key not configured")
		return
	}

	q := r.URL.Query()

	location := q.Get("location")
	if location == "" {
		location = s.cfg.Crawl.DefaultLocation
	}

	radiusKM := s.cfg.Crawl.DefaultRadiusKM
	if raw := q.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		radiusKM = parsed
	}

	types := s.cfg.Crawl.DefaultTypes
	if raw := q.Get("types"); raw != "" {
		types = splitTypes(raw)
	}
	if len(types) == 0 {
		writeError(w, http.StatusBadRequest, "no search types given")
		return
	}

	mode, err := model.ParseInclusionMode(q.Get("has_website"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "has_website must be yes, no, or both")
		return
	}

	req := model.CrawlRequest{
		Location: location,
		RadiusKM: radiusKM,
		Keyword:  q.Get("keyword"),
		Types:    types,
		Mode:     mode,
	}

	runID, err := s.runner.Start(r.Context(), req)
	if err != nil {
		zap.L().Error("crawl start failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start crawl")
		return
	}

	zap.L().Info("crawl started",
		zap.String("run_id", runID),
		zap.String("location", req.Location),
		zap.Float64("radius_km", req.RadiusKM),
		zap.Strings("types", req.Types),
		zap.String("has_website", string(req.Mode)),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// handleStream returns every place inserted after last_id and the new
// high-water mark. An empty result with an unchanged last_id is the normal
// nothing-new case, not an end-of-crawl signal.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	lastID, ok := parseLastID(w, r)
	if !ok {
		return
	}

	results, maxID, err := s.store.ReadAfter(r.Context(), lastID)
	if err != nil {
		zap.L().Error("stream read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"last_id": maxID,
		"results": results,
	})
}

// handleEvents pushes new rows over Server-Sent Events and finishes with an
// explicit complete event once the crawl has stopped producing.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	lastID, ok := parseLastID(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(s.eventsPollInterval())
	defer ticker.Stop()

	for {
		results, maxID, err := s.store.ReadAfter(r.Context(), lastID)
		if err != nil {
			zap.L().Error("events read failed", zap.Error(err))
			return
		}

		if len(results) > 0 {
			payload, err := json.Marshal(results)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: results\ndata: %s\n\n", payload)
			flusher.Flush()
			lastID = maxID
		} else if !s.runner.Running() {
			fmt.Fprintf(w, "event: complete\ndata: {\"last_id\": %d}\n\n", lastID)
			flusher.Flush()
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  serviceName,
		"version":  serviceVersion,
		"crawling": s.runner.Running(),
	})
}

func parseLastID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("last_id")
	if raw == "" {
		return 0, true
	}
	lastID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || lastID < 0 {
		writeError(w, http.StatusBadRequest, "invalid last_id")
		return 0, false
	}
	return lastID, true
}

func splitTypes(raw string) []string {
	var types []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}
