package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dashboard"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/source"
	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

const fetchTimeout = 20 * time.Second

type healthChecker interface {
	Health(ctx context.Context) error
}

type server struct {
	log    *slog.Logger
	cfg    *config.API
	src    source.Source
	svc    *dashboard.Service
	health healthChecker
}

type errorResponse struct {
	Error string `json:"error"`
}

type taxonomyResponse struct {
	Categories []taxonomy.Category `json:"categories"`
	Fallback   map[string]string   `json:"fallback_labels"`
}

type overviewResponse struct {
	Tags        dashboard.TagSummaryView      `json:"tags"`
	Competitors dashboard.CompetitorTagView   `json:"competitors"`
	KPI         dashboard.AdvancedKPIView     `json:"kpi"`
	Timeline    dashboard.FundingTimelineView `json:"timeline"`
	Errors      map[string]string             `json:"errors,omitempty"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/taxonomy", s.handleTaxonomy)
	r.Get("/overview", s.handleOverview)

	r.Get("/news", s.handleNews)
	r.Get("/tags/summary", s.handleTagSummary)
	r.Get("/activity", s.handleActivity)
	r.Route("/competitors", func(r chi.Router) {
		r.Get("/tags", s.handleCompetitorTags)
		r.Get("/scatter", s.handleScatter)
	})

	r.Route("/kpi", func(r chi.Router) {
		r.Get("/snapshot", s.handleKPISnapshot)
		r.Get("/advanced", s.handleAdvancedKPI)
	})
	r.Get("/funding/timeline", s.handleFundingTimeline)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, taxonomyResponse{
		Categories: s.svc.Taxonomy().Categories(),
		Fallback:   s.cfg.FallbackLabels,
	})
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.News)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.NewsFeed(tbl, dashboard.NewsFeedQuery{
		Tag:      strings.TrimSpace(r.URL.Query().Get("tag")),
		Fallback: s.fallback(r),
	}))
}

func (s *server) handleTagSummary(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.News)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.TagSummary(tbl, s.fallback(r)))
}

func (s *server) handleActivity(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.News)
	if !ok {
		return
	}
	selected := parseSelection(r.URL.Query(), "competitors")
	writeJSON(w, http.StatusOK, s.svc.ActivityTimeline(tbl, s.fallback(r), selected))
}

func (s *server) handleCompetitorTags(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.News)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.CompetitorsByTag(tbl, s.fallback(r)))
}

func (s *server) handleScatter(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.News)
	if !ok {
		return
	}
	selected := parseSelection(r.URL.Query(), "competitors")
	writeJSON(w, http.StatusOK, s.svc.CompetitorScatter(tbl, s.fallback(r), selected))
}

func (s *server) handleKPISnapshot(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.Snapshot)
	if !ok {
		return
	}
	selected := parseSelection(r.URL.Query(), "companies")
	writeJSON(w, http.StatusOK, s.svc.KPISnapshot(tbl, selected))
}

func (s *server) handleAdvancedKPI(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.Snapshot)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.AdvancedKPI(tbl))
}

func (s *server) handleFundingTimeline(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.fetch(w, r, source.History)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.FundingTimeline(tbl))
}

// handleOverview renders every view whose dataset loaded; failed datasets are
// reported per name and their views come back empty.
func (s *server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	data := source.LoadAll(ctx, s.src)
	fallback := s.fallback(r)

	resp := overviewResponse{
		Tags:        s.svc.TagSummary(data.News, fallback),
		Competitors: s.svc.CompetitorsByTag(data.News, fallback),
		KPI:         s.svc.AdvancedKPI(data.Snapshot),
		Timeline:    s.svc.FundingTimeline(data.History),
	}
	if len(data.Errors) > 0 {
		resp.Errors = make(map[string]string, len(data.Errors))
		for name, err := range data.Errors {
			resp.Errors[name] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) fetch(w http.ResponseWriter, r *http.Request, name string) (*dataset.Table, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	tbl, err := s.src.Fetch(ctx, name)
	if err != nil {
		s.log.Warn("fetch dataset",
			slog.String("dataset", name),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("err", err),
		)
		status := http.StatusBadGateway
		if errors.Is(err, source.ErrNotConfigured) || errors.Is(err, source.ErrUnknownDataset) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return nil, false
	}
	return tbl, true
}

func (s *server) fallback(r *http.Request) string {
	return s.cfg.Fallback(r.URL.Query().Get("lang"))
}

// parseSelection returns nil when key is absent, meaning "everything", and a
// possibly empty list when it is present.
func parseSelection(q url.Values, key string) []string {
	if !q.Has(key) {
		return nil
	}
	return parseCSV(q.Get(key))
}

func parseCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
