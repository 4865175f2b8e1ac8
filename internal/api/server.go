// Package api serves phase classification, lever-rule amounts and diagram
// geometry over HTTP. All endpoints are read-only GETs.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/phase-lever/internal/cooling"
	"github.com/talgya/phase-lever/internal/diagram"
	"github.com/talgya/phase-lever/internal/persistence"
	"github.com/talgya/phase-lever/internal/phase"
)

const maxHistory = 500

// Server serves the diagram over HTTP.
type Server struct {
	DB           *persistence.DB // Optional; nil disables history.
	Port         int
	CORSOrigins  []string
	RateLimit    int // Requests per minute per IP. 0 disables limiting.
	HistoryLimit int
	CoolingStep  float64

	Metrics *Metrics

	startedAt time.Time
	limiter   *RateLimiter

	diagramOnce sync.Once
	diagramBody diagramResponse
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = 50
	}
	if s.CoolingStep <= 0 {
		s.CoolingStep = cooling.DefaultStep
	}
	if s.RateLimit > 0 && s.limiter == nil {
		s.limiter = NewRateLimiter(s.RateLimit, time.Minute)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.route("status", s.handleStatus))
	mux.HandleFunc("/api/v1/classify", s.route("classify", s.handleClassify))
	mux.HandleFunc("/api/v1/amounts", s.route("amounts", s.handleAmounts))
	mux.HandleFunc("/api/v1/tieline", s.route("tieline", s.handleTieLine))
	mux.HandleFunc("/api/v1/diagram", s.route("diagram", s.handleDiagram))
	mux.HandleFunc("/api/v1/cooling", s.route("cooling", s.handleCooling))
	mux.HandleFunc("/api/v1/history", s.route("history", s.handleHistory))
	mux.HandleFunc("/api/v1/history/", s.route("history", s.handleHistoryItem))
	mux.Handle("/metrics", s.Metrics.Handler())

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.Janitor(ctx, time.Hour)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "error", err)
		}
	}()

	slog.Info("HTTP API starting", "addr", addr, "history", s.DB != nil, "rate_limit", s.RateLimit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

// route applies GET-only, rate limiting and timing to a handler.
func (s *Server) route(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	get := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
	limited := RateLimitMiddleware(s.limiter, func() {
		s.Metrics.rejectedTotal.WithLabelValues(endpoint, "rate_limited").Inc()
	}, get)
	return s.Metrics.observe(endpoint, limited)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "U–Ti phase diagram",
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"history": s.DB != nil,
		"domain": map[string]float64{
			"min_x": phase.MinX, "max_x": phase.MaxX,
			"min_t": phase.MinT, "max_t": phase.MaxT,
		},
		"points": map[string]diagram.Point{
			"pure_ti":   {X: 0, T: phase.PureTiT},
			"eutectic1": {X: phase.Eutectic1X, T: phase.Eutectic1T},
			"compound":  {X: phase.CompoundX, T: phase.CompoundT},
			"eutectic2": {X: phase.Eutectic2X, T: phase.Eutectic2T},
			"pure_u":    {X: 1, T: phase.PureUT},
		},
	}

	if s.DB != nil {
		counts, err := s.DB.CountByRegion()
		if err != nil {
			slog.Error("status region counts failed", "error", err)
		} else {
			status["queries_by_region"] = counts
		}
	}

	writeJSON(w, status)
}

type pointResponse struct {
	X       float64        `json:"x"`
	T       float64        `json:"t"`
	Region  phase.Region   `json:"region"`
	Amounts *phase.Amounts `json:"amounts,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	x, t, ok := s.point(w, r, "classify")
	if !ok {
		return
	}
	region, err := phase.Classify(x, t)
	if err != nil {
		s.reject(w, "classify", err)
		return
	}
	s.Metrics.queriesTotal.WithLabelValues("classify", region.Name()).Inc()
	writeJSON(w, pointResponse{X: x, T: t, Region: region})
}

func (s *Server) handleAmounts(w http.ResponseWriter, r *http.Request) {
	x, t, ok := s.point(w, r, "amounts")
	if !ok {
		return
	}
	a, region, err := phase.AmountsAt(x, t)
	if err != nil {
		s.reject(w, "amounts", err)
		return
	}
	s.Metrics.queriesTotal.WithLabelValues("amounts", region.Name()).Inc()

	if s.DB != nil {
		if err := s.DB.SaveQuery(persistence.NewQuery(x, t, region, a)); err != nil {
			slog.Error("save query failed", "error", err)
		}
	}

	slog.Debug("amounts", "x", x, "t", t, "region", region.Name())
	writeJSON(w, pointResponse{X: x, T: t, Region: region, Amounts: &a})
}

type tieLineResponse struct {
	diagram.TieLine
	Screen *diagram.ScreenTieLine `json:"screen,omitempty"`
}

// handleTieLine takes the point as x and t, or as screen pixels px and py
// inside viewport=left,top,right,bottom. With a viewport the response also
// carries the tie line in screen coordinates.
func (s *Server) handleTieLine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var vp diagram.Viewport
	hasViewport := q.Has("viewport")
	if hasViewport {
		var err error
		if vp, err = diagram.ParseViewport(q.Get("viewport")); err != nil {
			s.reject(w, "tieline", err)
			return
		}
	}

	var x, t float64
	if q.Has("px") || q.Has("py") {
		px, errX := parseFloat("px", q.Get("px"))
		py, errY := parseFloat("py", q.Get("py"))
		if err := errors.Join(errX, errY); err != nil {
			s.reject(w, "tieline", err)
			return
		}
		if !hasViewport {
			s.reject(w, "tieline", errors.New("px and py need a viewport"))
			return
		}
		p := vp.FromScreen(px, py)
		x, t = p.X, p.T
	} else {
		var ok bool
		if x, t, ok = s.point(w, r, "tieline"); !ok {
			return
		}
	}

	tl, err := diagram.TieLineAt(x, t)
	if err != nil {
		s.reject(w, "tieline", err)
		return
	}
	s.Metrics.queriesTotal.WithLabelValues("tieline", tl.Region.Name()).Inc()

	resp := tieLineResponse{TieLine: tl}
	if hasViewport {
		st := vp.Project(tl)
		resp.Screen = &st
	}
	writeJSON(w, resp)
}

type diagramLine struct {
	diagram.Segment
	Points []diagram.Point `json:"points"`
}

type diagramResponse struct {
	Lines            []diagramLine  `json:"lines"`
	TemperatureTicks []diagram.Tick `json:"temperature_ticks"`
	CompositionTicks []diagram.Tick `json:"composition_ticks"`
	Labels           struct {
		X string `json:"x"`
		T string `json:"t"`
	} `json:"labels"`
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	s.diagramOnce.Do(func() {
		for _, seg := range diagram.Boundaries() {
			pts, err := diagram.Polyline(seg, diagram.DefaultStep)
			if err != nil {
				// DefaultStep is valid; this only fires on a programming error.
				slog.Error("polyline failed", "segment", seg.Name, "error", err)
				continue
			}
			s.diagramBody.Lines = append(s.diagramBody.Lines, diagramLine{Segment: seg, Points: pts})
		}
		s.diagramBody.TemperatureTicks = diagram.TemperatureTicks()
		s.diagramBody.CompositionTicks = diagram.CompositionTicks()
		s.diagramBody.Labels.X = diagram.CompositionLabel
		s.diagramBody.Labels.T = diagram.TemperatureLabel
	})
	writeJSON(w, s.diagramBody)
}

func (s *Server) handleCooling(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, err1 := parseFloat("x", q.Get("x"))
	start, err2 := parseFloatDefault("start", q.Get("start"), phase.MaxT)
	end, err3 := parseFloatDefault("end", q.Get("end"), phase.MinT)
	step, err4 := parseFloatDefault("step", q.Get("step"), s.CoolingStep)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		s.Metrics.rejectedTotal.WithLabelValues("cooling", "bad_request").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runner, err := cooling.NewRunner(x, start, end, step)
	if err != nil {
		s.reject(w, "cooling", err)
		return
	}
	path, err := runner.Run(r.Context())
	if err != nil {
		slog.Error("cooling run failed", "error", err)
		http.Error(w, "cooling run failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, path)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}

	limit := s.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistory)
	}

	rows, err := s.DB.RecentQueries(limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.Query{}
	}
	writeJSON(w, rows)
}

// handleHistoryItem serves one stored query by ID.
func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/history/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	q, err := s.DB.GetQuery(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "query not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("history lookup failed", "id", id, "error", err)
		http.Error(w, "history lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, q)
}

// point parses the x and t query parameters, answering 400 on failure.
func (s *Server) point(w http.ResponseWriter, r *http.Request, endpoint string) (float64, float64, bool) {
	q := r.URL.Query()
	x, errX := parseFloat("x", q.Get("x"))
	t, errT := parseFloat("t", q.Get("t"))
	if err := errors.Join(errX, errT); err != nil {
		s.Metrics.rejectedTotal.WithLabelValues(endpoint, "bad_request").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, 0, false
	}
	return x, t, true
}

// reject answers a classification or run-parameter error with 400.
func (s *Server) reject(w http.ResponseWriter, endpoint string, err error) {
	reason := "bad_request"
	if errors.Is(err, phase.ErrOutOfRange) {
		reason = "out_of_range"
	}
	s.Metrics.rejectedTotal.WithLabelValues(endpoint, reason).Inc()
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func parseFloat(name, v string) (float64, error) {
	if v == "" {
		return 0, fmt.Errorf("missing parameter %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

func parseFloatDefault(name, v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return parseFloat(name, v)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}
