package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"triage-assist/internal/core"
	"triage-assist/internal/db"
	"triage-assist/pkg"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxBodyBytes bounds request bodies for both the form and the JSON API.
const maxBodyBytes = 64 << 10

// RunStore persists evaluations.  *db.Repository implements it.
type RunStore interface {
	SaveRun(ctx context.Context, run db.NewRun) (*pkg.RunRecord, error)
	GetRun(ctx context.Context, id string) (*pkg.RunRecord, error)
	ListRuns(ctx context.Context, limit int, minUrgency pkg.UrgencyLevel) ([]pkg.RunRecord, error)
	CountByUrgency(ctx context.Context) (map[pkg.UrgencyLevel]int, error)
}

// RunNotifier announces a stored run.  *db.Notifier implements it.
type RunNotifier interface {
	Notify(ctx context.Context, runID string) error
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.Server.
type Server struct {
	Triage    *core.TriageService
	Runs      RunStore
	Notifier  RunNotifier
	Templates *template.Template
	Logger    *zap.Logger
}

// NewServer constructs a Server.  runs and notifier may be nil, which
// disables history and red-run notifications.
func NewServer(triage *core.TriageService, runs RunStore, notifier RunNotifier, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Triage:    triage,
		Runs:      runs,
		Notifier:  notifier,
		Templates: tmpl,
		Logger:    logger,
	}, nil
}

// ServeHTTP dispatches incoming requests based on the URL path.  Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/" && r.Method == http.MethodGet:
		s.handleIndex(w, r)
	case path == "/" && r.Method == http.MethodPost:
		s.handleIndexSubmit(w, r)
	case path == "/api/triage" && r.Method == http.MethodPost:
		s.handleTriageAPI(w, r)
	case path == "/api/urgency-levels" && r.Method == http.MethodGet:
		s.handleUrgencyLevels(w, r)
	case path == "/api/runs" && r.Method == http.MethodGet:
		s.handleListRuns(w, r)
	case path == "/api/runs/stats" && r.Method == http.MethodGet:
		s.handleRunStats(w, r)
	case strings.HasPrefix(path, "/api/runs/") && r.Method == http.MethodGet:
		// Extract the run ID after /api/runs/
		runID := strings.TrimPrefix(path, "/api/runs/")
		if runID == "" || strings.Contains(runID, "/") {
			http.NotFound(w, r)
			return
		}
		s.handleGetRun(w, r, runID)
	case path == "/healthz" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"remote":  s.Triage.RemoteAvailable(),
			"history": s.Runs != nil,
		})
	default:
		http.NotFound(w, r)
	}
}

// pageData feeds index.html.
type pageData struct {
	Disclaimer      string
	ReportText      string
	Mode            string
	RemoteAvailable bool
	Provider        string
	Result          *pkg.TriageResponse
	RunID           string
	JSON            string
	Error           string
	ErrorKind       string
}

func (s *Server) newPage() pageData {
	return pageData{
		Disclaimer:      core.Disclaimer,
		Mode:            string(core.ModeLocal),
		RemoteAvailable: s.Triage.RemoteAvailable(),
		Provider:        s.Triage.ProviderName(),
	}
}

// handleIndex renders the empty form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPage())
}

// handleIndexSubmit evaluates the submitted form and re-renders the page
// with either the result or the error message.
func (s *Server) handleIndexSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	page := s.newPage()
	page.ReportText = r.FormValue("reportText")
	page.Mode = r.FormValue("mode")

	outcome, runID, err := s.evaluate(r.Context(), page.ReportText, page.Mode)
	if err != nil {
		page.Error = err.Error()
		page.ErrorKind = core.ErrorKind(err)
		s.renderPage(w, statusForError(err), page)
		return
	}
	pretty, err := json.MarshalIndent(outcome.Response, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page.Result = outcome.Response
	page.RunID = runID
	page.JSON = string(pretty)
	s.renderPage(w, http.StatusOK, page)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.Templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.Logger.Error("render page", zap.Error(err))
	}
}

// handleTriageAPI evaluates a JSON TriageRequest and returns the
// TriageResponse.  The stored run id, if any, is sent in X-Triage-Run-ID.
func (s *Server) handleTriageAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req pkg.TriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Kind: "bad_request"})
		return
	}
	outcome, runID, err := s.evaluate(r.Context(), req.ReportText, req.Mode)
	if err != nil {
		writeJSON(w, statusForError(err), errorBody{Error: err.Error(), Kind: core.ErrorKind(err)})
		return
	}
	if runID != "" {
		w.Header().Set("X-Triage-Run-ID", runID)
	}
	w.Header().Set("X-Triage-Mode", string(outcome.Mode))
	writeJSON(w, http.StatusOK, outcome.Response)
}

// evaluate runs the service and records the run.  History failures are
// logged and never change the evaluation result.
func (s *Server) evaluate(ctx context.Context, reportText, modeName string) (*core.Outcome, string, error) {
	mode, err := core.ParseMode(modeName)
	if err != nil {
		return nil, "", err
	}
	outcome, err := s.Triage.Evaluate(ctx, reportText, mode)
	if err != nil {
		return nil, "", err
	}
	return outcome, s.record(ctx, outcome), nil
}

func (s *Server) record(ctx context.Context, outcome *core.Outcome) string {
	if s.Runs == nil {
		return ""
	}
	rec, err := s.Runs.SaveRun(ctx, db.NewRun{
		Mode:     string(outcome.Mode),
		Provider: outcome.Provider,
		Response: outcome.Response,
	})
	if err != nil {
		s.Logger.Error("failed to store triage run", zap.Error(err))
		return ""
	}
	if s.Notifier != nil && outcome.Response.Result.Urgency == pkg.UrgencyRed {
		if err := s.Notifier.Notify(ctx, rec.ID); err != nil {
			s.Logger.Warn("failed to notify red run", zap.String("run_id", rec.ID), zap.Error(err))
		}
	}
	return rec.ID
}

// handleUrgencyLevels returns the label/action/colour table.
func (s *Server) handleUrgencyLevels(w http.ResponseWriter, r *http.Request) {
	levels := make([]pkg.UrgencyInfo, 0, len(pkg.UrgencyLevels))
	for _, u := range pkg.UrgencyLevels {
		levels = append(levels, u.Info())
	}
	writeJSON(w, http.StatusOK, levels)
}

// handleListRuns returns stored runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer", Kind: "bad_request"})
			return
		}
		limit = v
	}
	var minUrgency pkg.UrgencyLevel
	if raw := q.Get("min_urgency"); raw != "" {
		u, ok := pkg.ParseUrgency(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown urgency " + raw, Kind: "bad_request"})
			return
		}
		minUrgency = u
	}
	runs, err := s.Runs.ListRuns(r.Context(), limit, minUrgency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []pkg.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunStats returns the run count for every level, most severe first.
// Levels without runs are reported with a zero count.
func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		http.NotFound(w, r)
		return
	}
	counts, err := s.Runs.CountByUrgency(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats := make([]pkg.UrgencyCount, 0, len(pkg.UrgencyLevels))
	for _, u := range pkg.UrgencyLevels {
		stats = append(stats, pkg.UrgencyCount{Urgency: u, Label: u.Label(), Count: counts[u]})
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetRun returns one stored run with its response.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	if s.Runs == nil {
		http.NotFound(w, r)
		return
	}
	rec, err := s.Runs.GetRun(r.Context(), runID)
	if errors.Is(err, db.ErrRunNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusForError(err error) int {
	switch core.ErrorKind(err) {
	case core.KindEmptyReport, core.KindUnknownMode:
		return http.StatusBadRequest
	case core.KindRemoteUnavailable:
		return http.StatusServiceUnavailable
	case core.KindParse, core.KindSchema, core.KindTransport:
		return http.StatusBadGateway
	case core.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
