package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/siteplan/pkg/assign"
	"github.com/matzehuels/siteplan/pkg/buildinfo"
	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/pipeline"
	"github.com/matzehuels/siteplan/pkg/render"
	"github.com/matzehuels/siteplan/pkg/solution"
	"github.com/matzehuels/siteplan/pkg/store"
	"github.com/matzehuels/siteplan/pkg/verify"
)

// DefaultInstanceName names instances posted without ?name=.
const DefaultInstanceName = "request"

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// =============================================================================
// Solve
// =============================================================================

type solveResponse struct {
	RunID       string              `json:"run_id,omitempty"`
	Instance    string              `json:"instance"`
	Strategy    string              `json:"strategy"`
	Solution    *solution.Solution  `json:"solution"`
	Metrics     fairness.Metrics    `json:"metrics"`
	WorkloadGap int                 `json:"workload_gap"`
	DistanceGap float64             `json:"distance_gap"`
	Thresholds  fairness.Thresholds `json:"thresholds"`
	Feasible    bool                `json:"feasible"`
	CacheHit    bool                `json:"cache_hit"`
	Stats       assign.Stats        `json:"stats"`
	DurationMS  int64               `json:"duration_ms"`
}

// solve reads an instance file from the body. Query parameters: name,
// strategy, refresh and format (text or json). An Accept header of
// application/json also selects JSON.
func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("name")
	if name == "" {
		name = DefaultInstanceName
	}
	if err := errors.ValidateInstanceName(name); err != nil {
		writeError(w, r, err)
		return
	}

	opts := s.defaults
	if v := q.Get("strategy"); v != "" {
		opts.Strategy = v
	}
	if v := q.Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "refresh must be a boolean, got %q", v))
			return
		}
		opts.Refresh = refresh
	}

	inst, err := instance.Parse(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inst.Name = name

	res, err := s.runner.Solve(r.Context(), inst, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !wantsJSON(r) {
		var buf bytes.Buffer
		if err := solution.Write(&buf, res.Solution, res.Summary); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	m := res.Summary.Metrics
	writeJSON(w, r, http.StatusOK, solveResponse{
		RunID:       res.RunID,
		Instance:    inst.Name,
		Strategy:    string(opts.StrategyValue()),
		Solution:    res.Solution,
		Metrics:     m,
		WorkloadGap: m.WorkloadGap(),
		DistanceGap: m.DistanceGap(),
		Thresholds:  res.Thresholds(),
		Feasible:    res.Feasible(),
		CacheHit:    res.CacheHit,
		Stats:       res.Stats.Search,
		DurationMS:  res.Stats.Duration.Milliseconds(),
	})
}

func wantsJSON(r *http.Request) bool {
	switch r.URL.Query().Get("format") {
	case "json":
		return true
	case "text":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// =============================================================================
// Verify
// =============================================================================

// pairRequest carries an instance and a solution in their file formats.
type pairRequest struct {
	Name     string `json:"name"`
	Instance string `json:"instance" validate:"required"`
	Solution string `json:"solution"`
}

func (p *pairRequest) parse() (*instance.Instance, *solution.Solution, error) {
	if p.Name == "" {
		p.Name = DefaultInstanceName
	}
	if err := errors.ValidateInstanceName(p.Name); err != nil {
		return nil, nil, err
	}
	inst, err := instance.Parse(strings.NewReader(p.Instance))
	if err != nil {
		return nil, nil, err
	}
	inst.Name = p.Name
	if p.Solution == "" {
		return inst, nil, nil
	}
	sol, err := solution.Parse(strings.NewReader(p.Solution))
	if err != nil {
		return nil, nil, err
	}
	return inst, sol, nil
}

type verifyResponse struct {
	OK      bool   `json:"ok"`
	Verdict string `json:"verdict"`
	Failed  string `json:"failed,omitempty"`
	// Text is the report as the command line prints it.
	Text string `json:"text"`
	*verify.Report
}

// verify always answers 200 for a parsable pair; a failed check is part of
// the report, not an HTTP error.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Solution == "" {
		writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "solution is required"))
		return
	}
	inst, sol, err := req.parse()
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.runner.Verify(r.Context(), inst, sol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var text bytes.Buffer
	if _, err := report.WriteTo(&text); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, verifyResponse{
		OK:      report.OK(),
		Verdict: report.Verdict(),
		Failed:  string(report.Failed()),
		Text:    text.String(),
		Report:  report,
	})
}

// =============================================================================
// Render
// =============================================================================

type renderRequest struct {
	pairRequest
	Format string `json:"format" validate:"omitempty,oneof=dot svg png pdf json"`
	Labels bool   `json:"labels"`
}

var contentTypes = map[string]string{
	render.FormatDOT:    "text/vnd.graphviz; charset=utf-8",
	render.FormatSVG:    "image/svg+xml",
	render.FormatPNG:    "image/png",
	render.FormatPDF:    "application/pdf",
	pipeline.FormatJSON: "application/json",
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Format == "" {
		req.Format = render.FormatSVG
	}
	inst, sol, err := req.parse()
	if err != nil {
		writeError(w, r, err)
		return
	}

	artifacts, err := s.runner.Render(r.Context(), inst, sol, []string{req.Format}, render.Options{Labels: req.Labels})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[req.Format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[req.Format])
}

// =============================================================================
// Runs
// =============================================================================

type runsResponse struct {
	Runs []*store.Run `json:"runs"`
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{Instance: q.Get("instance"), Kind: store.Kind(q.Get("kind"))}
	if f.Kind != "" && f.Kind != store.KindSolve && f.Kind != store.KindVerify {
		writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "kind must be one of: solve, verify"))
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be between 1 and 1000"))
			return
		}
		f.Limit = n
	}

	runs, err := s.runner.History(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, r, http.StatusOK, runsResponse{Runs: runs})
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.runner.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}
