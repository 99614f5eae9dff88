package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/normalization"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/reporting"
)

// profileRequest is the body of POST /v1/profile. Absent window, bins,
// round and n fall back to the server defaults.
type profileRequest struct {
	Price       []float64 `json:"price"`
	Volume      []float64 `json:"volume"`
	WindowSize  *int      `json:"window_size"`
	Bins        *int      `json:"bins"`
	CenterLabel bool      `json:"center_label"`
	Round       *int      `json:"round"`
	Pct         bool      `json:"pct"`
	Mode        string    `json:"mode"`
	N           *int      `json:"n"`
	Sequential  bool      `json:"sequential"`
}

type profileResponse struct {
	Mode       string  `json:"mode"`
	Symbol     string  `json:"symbol,omitempty"`
	Timestamps []int64 `json:"timestamps,omitempty"`
	Rows       any     `json:"rows"`
}

type runResponse struct {
	RunID       string `json:"run_id"`
	Symbol      string `json:"symbol"`
	FromMs      int64  `json:"from_ms"`
	ToMs        int64  `json:"to_ms"`
	WindowSize  int    `json:"window_size"`
	Bins        int    `json:"bins"`
	CenterLabel bool   `json:"center_label"`
	Round       int    `json:"round"`
	Pct         bool   `json:"pct"`
	Rows        int    `json:"rows"`
	Status      string `json:"status"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

type storedRow struct {
	TimestampMs int64             `json:"timestamp_ms"`
	Position    int               `json:"position"`
	Histogram   profile.Histogram `json:"histogram"`
}

type runDetailResponse struct {
	Run  runResponse `json:"run"`
	Rows []storedRow `json:"rows"`
}

func toRunResponse(r *domain.ProfileRun) runResponse {
	return runResponse{
		RunID:       r.RunID,
		Symbol:      r.Symbol,
		FromMs:      r.FromMs,
		ToMs:        r.ToMs,
		WindowSize:  r.WindowSize,
		Bins:        r.Bins,
		CenterLabel: r.CenterLabel,
		Round:       r.Round,
		Pct:         r.Pct,
		Rows:        r.Rows,
		Status:      r.Status,
		CreatedAtMs: r.CreatedAtMs,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"series_store": s.deps.Series != nil,
		"run_store":    s.deps.Job != nil,
		"timestamp":    time.Now().Unix(),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode body: %v", profile.ErrInvalidParameter, err))
		return
	}

	p := profile.TopNParams{Params: s.deps.Defaults, N: 1}
	p.CenterLabel = req.CenterLabel
	p.Pct = req.Pct
	if req.WindowSize != nil {
		p.WindowSize = *req.WindowSize
	}
	if req.Bins != nil {
		p.Bins = *req.Bins
	}
	if req.Round != nil {
		p.Round = *req.Round
	}
	if req.N != nil {
		p.N = *req.N
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeFull
	}
	if err := checkMode(mode); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.limits.check(p); err != nil {
		s.writeError(w, r, err)
		return
	}

	engine := s.deps.Engine
	if req.Sequential {
		engine = profile.NewEngine(profile.Sequential{})
	}

	rows, err := s.compute(r.Context(), engine, mode, req.Price, req.Volume, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Mode: mode, Rows: rows})
}

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	if s.deps.Series == nil {
		s.writeError(w, r, fmt.Errorf("series store: %w", errUnavailable))
		return
	}
	symbols, err := s.deps.Series.ListSymbols(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": symbols, "count": len(symbols)})
}

func (s *Server) handleSymbolProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Series == nil {
		s.writeError(w, r, fmt.Errorf("series store: %w", errUnavailable))
		return
	}
	symbol := mux.Vars(r)["symbol"]
	q := r.URL.Query()

	p, mode, err := queryParams(q, s.deps.Defaults, s.limits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, to, err := rangeParams(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var points []*domain.SeriesPoint
	if from == 0 && to == 0 {
		points, err = s.deps.Series.GetBySymbol(r.Context(), symbol)
	} else {
		points, err = s.deps.Series.GetByTimeRange(r.Context(), symbol, from, to)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(points) == 0 {
		s.writeError(w, r, fmt.Errorf("symbol %s: %w", symbol, pipeline.ErrNoSeries))
		return
	}

	price, volume := normalization.Columns(points)
	rows, err := s.compute(r.Context(), s.deps.Engine, mode, price, volume, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	timestamps := make([]int64, len(points))
	for i, pt := range points {
		timestamps[i] = pt.TimestampMs
	}
	writeJSON(w, http.StatusOK, profileResponse{Mode: mode, Symbol: symbol, Timestamps: timestamps, Rows: rows})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Job == nil {
		s.writeError(w, r, fmt.Errorf("run store: %w", errUnavailable))
		return
	}
	q := r.URL.Query()

	p, _, err := queryParams(q, s.deps.Defaults, s.limits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, to, err := rangeParams(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	replace, err := boolParam(q, "replace", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	run, err := s.deps.Job.Run(r.Context(), pipeline.Request{
		Symbol:  mux.Vars(r)["symbol"],
		FromMs:  from,
		ToMs:    to,
		Params:  p.Params,
		Replace: replace,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunResponse(run))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Job == nil {
		s.writeError(w, r, fmt.Errorf("run store: %w", errUnavailable))
		return
	}
	runs, err := s.deps.Job.Runs(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = toRunResponse(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out, "count": len(out)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Job == nil {
		s.writeError(w, r, fmt.Errorf("run store: %w", errUnavailable))
		return
	}
	run, rows, err := s.deps.Job.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := runDetailResponse{Run: toRunResponse(run), Rows: make([]storedRow, len(rows))}
	for i, row := range rows {
		resp.Rows[i] = storedRow{
			TimestampMs: row.TimestampMs,
			Position:    row.Position,
			Histogram:   profile.Histogram{Labels: row.Labels, Volumes: row.Volumes},
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRunReport renders the point-of-control report of a stored run as
// Markdown, or as CSV with format=csv.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Job == nil {
		s.writeError(w, r, fmt.Errorf("run store: %w", errUnavailable))
		return
	}
	q := r.URL.Query()
	recent, err := intParam(q, "recent", 20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := q.Get("format")
	if format != "" && format != "md" && format != "csv" {
		s.writeError(w, r, fmt.Errorf("%w: format must be md or csv", profile.ErrInvalidParameter))
		return
	}

	run, rows, err := s.deps.Job.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report := reporting.Build(run, rows, time.Now())

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, reporting.RenderCSV(report.Track))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, reporting.RenderMarkdown(report, recent))
}

// compute runs one engine operation and records it.
func (s *Server) compute(ctx context.Context, engine *profile.Engine, mode string, price, volume []float64, p profile.TopNParams) (any, error) {
	start := time.Now()
	var (
		rows any
		n    int
		err  error
	)

	switch mode {
	case domain.ModeTopNPrice:
		var out []profile.TopN
		out, err = engine.TopNPrices(ctx, price, volume, p)
		if out == nil {
			out = []profile.TopN{}
		}
		rows, n = out, len(out)
	case domain.ModeTopNVolume:
		var out []profile.TopN
		out, err = engine.TopNVolumes(ctx, price, volume, p)
		if out == nil {
			out = []profile.TopN{}
		}
		rows, n = out, len(out)
	default:
		var out []*profile.Histogram
		out, err = engine.Histograms(ctx, price, volume, p.Params)
		if out == nil {
			out = []*profile.Histogram{}
		}
		rows, n = out, len(out)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordProfile(mode, n, time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}
