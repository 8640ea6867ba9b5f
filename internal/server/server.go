// Package server exposes the admin API over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/audit"
	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/config"
	"github.com/suburbmates/directory-cli/internal/dedupe"
	"github.com/suburbmates/directory-cli/internal/model"
	"github.com/suburbmates/directory-cli/internal/scorer"
)

// Server handles admin API requests.
type Server struct {
	store      business.Store
	scores     *scorer.Service
	detector   *dedupe.Detector
	audit      audit.Recorder
	cfg        config.ServerConfig
	maxRecords int
}

// New creates a Server.
func New(store business.Store, scores *scorer.Service, detector *dedupe.Detector, recorder audit.Recorder, cfg config.ServerConfig, maxRecords int) *Server {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &Server{
		store:      store,
		scores:     scores,
		detector:   detector,
		audit:      recorder,
		cfg:        cfg,
		maxRecords: maxRecords,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/quality-scoring", s.handleListScored)
		r.Post("/quality-scoring", s.handleRescoreAll)
		r.Post("/quality-scoring/calculate/{businessId}", s.handleCalculate)
		r.Post("/quality-scoring/boost", s.handleApplyBoost)
		r.Delete("/quality-scoring/boost/{boostId}", s.handleRemoveBoost)
		r.Get("/duplicates", s.handleDuplicates)
		r.Post("/duplicates/merge", s.handleMerge)
	})

	return r
}

// requireToken enforces the admin bearer token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.cfg.AdminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scoredListing pairs a business with its quality band.
type scoredListing struct {
	model.Business
	Band model.QualityBand `json:"band"`
}

func (s *Server) handleListScored(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := business.Filter{Suburb: q.Get("suburb")}

	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, eris.Wrap(scorer.ErrInvalidBoost, "min_score must be an integer"))
			return
		}
		f.MinScore = &n
	}
	if v := q.Get("max_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, eris.Wrap(scorer.ErrInvalidBoost, "max_score must be an integer"))
			return
		}
		f.MaxScore = &n
	}
	if band := q.Get("band"); band != "" {
		lo, hi, ok := bandRange(model.QualityBand(band))
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown band " + band})
			return
		}
		f.MinScore, f.MaxScore = &lo, &hi
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}

	listings, err := s.store.ListBusinesses(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]scoredListing, 0, len(listings))
	for _, b := range listings {
		out = append(out, scoredListing{Business: b, Band: model.BandFor(b.QualityScore)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"businesses": out, "count": len(out)})
}

func bandRange(band model.QualityBand) (lo, hi int, ok bool) {
	switch band {
	case model.BandExcellent:
		return 80, 100, true
	case model.BandGood:
		return 65, 79, true
	case model.BandFair:
		return 50, 64, true
	case model.BandLow:
		return 0, 49, true
	default:
		return 0, 0, false
	}
}

func (s *Server) handleRescoreAll(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	go func() {
		// Detached from the request context: rescoring outlives the 202.
		n, err := s.scores.RescoreAll(context.Background(), business.Filter{Limit: s.maxRecords}, 4)
		if err != nil {
			zap.L().Error("server: rescore all failed", zap.Error(err))
			return
		}
		zap.L().Info("server: rescore all complete", zap.Int("count", n))
	}()
	s.audit.Record(r.Context(), actor, "quality.rescore_all", "", nil)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "businessId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "businessId must be an integer"})
		return
	}

	score, err := s.scores.Calculate(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleApplyBoost(w http.ResponseWriter, r *http.Request) {
	var req scorer.BoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	boost, score, err := s.scores.ApplyBoost(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.audit.Record(r.Context(), actorFrom(r), "quality.boost_apply", strconv.FormatInt(req.BusinessID, 10), boost)
	writeJSON(w, http.StatusCreated, map[string]any{"boost": boost, "score": score})
}

func (s *Server) handleRemoveBoost(w http.ResponseWriter, r *http.Request) {
	boostID := chi.URLParam(r, "boostId")
	score, err := s.scores.RemoveBoost(r.Context(), boostID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.audit.Record(r.Context(), actorFrom(r), "quality.boost_remove", boostID, nil)
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.ListBusinesses(r.Context(), business.Filter{Limit: s.maxRecords})
	if err != nil {
		s.writeError(w, err)
		return
	}

	groups := s.detector.Detect(listings)
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":  groups,
		"count":   len(groups),
		"scanned": len(listings),
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PrimaryID    int64   `json:"primary_id"`
		DuplicateIDs []int64 `json:"duplicate_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PrimaryID == 0 || len(req.DuplicateIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "primary_id and duplicate_ids are required"})
		return
	}

	merged, err := s.store.MergeBusinesses(r.Context(), req.PrimaryID, req.DuplicateIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The merged profile changed; its score cache is stale until rescored.
	if _, err := s.scores.Calculate(r.Context(), req.PrimaryID); err != nil {
		zap.L().Warn("server: rescore after merge failed",
			zap.Int64("primary_id", req.PrimaryID), zap.Error(err))
	}

	s.audit.Record(r.Context(), actorFrom(r), "duplicates.merge",
		strconv.FormatInt(req.PrimaryID, 10), req)
	writeJSON(w, http.StatusOK, map[string]any{"merged": merged})
}

// writeError maps service errors to the admin API taxonomy.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, scorer.ErrInvalidBoost):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": eris.Cause(err).Error(), "detail": err.Error()})
	case eris.Is(err, business.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		zap.L().Error("server: request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Admin-Actor"); actor != "" {
		return actor
	}
	return "admin"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}
