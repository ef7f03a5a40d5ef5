package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// maxRecentLimit caps ?limit on /results/{board}.
const maxRecentLimit = 500

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleConnectivity returns the supervisor state plus the derived ready flag.
func (s *Server) handleConnectivity(w http.ResponseWriter, _ *http.Request) {
	if s.connectivity == nil {
		writeNotFound(w, "connectivity is not supervised by this process")
		return
	}
	st := s.connectivity.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"state": st,
		"ready": st.Ready(),
	})
}

func (s *Server) handleLink(w http.ResponseWriter, _ *http.Request) {
	if s.link == nil {
		writeNotFound(w, "no network link in this process")
		return
	}
	writeJSON(w, http.StatusOK, s.link.Status())
}

func (s *Server) handleResultSummary(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeNotFound(w, "results are not collected by this process")
		return
	}
	sums, err := s.results.Summaries(r.Context())
	if err != nil {
		s.logger.Error("loading result summaries failed", "error", err, "request_id", requestID(r.Context()))
		writeInternalError(w, "failed to load summaries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summaries": sums,
		"count":     len(sums),
	})
}

// handleRecentResults returns the newest results for one board.
// ?limit defaults to 50 and is capped at maxRecentLimit.
func (s *Server) handleRecentResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeNotFound(w, "results are not collected by this process")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	board := chi.URLParam(r, "board")
	results, err := s.results.Recent(r.Context(), board, limit)
	if err != nil {
		s.logger.Error("loading recent results failed", "board", board, "error", err, "request_id", requestID(r.Context()))
		writeInternalError(w, "failed to load results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"board":   board,
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeNotFound(w, "nodes are not tracked by this process")
		return
	}
	nodes, err := s.results.NodeStatuses(r.Context())
	if err != nil {
		s.logger.Error("loading node status failed", "error", err, "request_id", requestID(r.Context()))
		writeInternalError(w, "failed to load nodes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"count": len(nodes),
	})
}
