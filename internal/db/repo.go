package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"triage-assist/pkg"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("triage run not found")

// MaxListLimit caps the number of runs returned by ListRuns.
const MaxListLimit = 200

// Repository stores triage runs in Postgres.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// NewRun is an evaluation to be stored.
type NewRun struct {
	Mode     string
	Provider string
	Response *pkg.TriageResponse
}

// SaveRun inserts a run and returns the stored record.
func (r *Repository) SaveRun(ctx context.Context, run NewRun) (*pkg.RunRecord, error) {
	if run.Response == nil {
		return nil, errors.New("save run: response is nil")
	}
	body, err := json.Marshal(run.Response)
	if err != nil {
		return nil, fmt.Errorf("save run: encode response: %w", err)
	}
	res := run.Response.Result
	id := uuid.New()
	rec := &pkg.RunRecord{
		ID:       id.String(),
		Mode:     run.Mode,
		Provider: run.Provider,
		Urgency:  res.Urgency,
		Summary:  res.Summary,
		Response: run.Response,
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO triage_runs
             (id, mode, provider, report_text, urgency, urgency_rank, recommended_action, summary, cautions, response)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING created_at`,
		id, run.Mode, run.Provider, run.Response.Input.ReportText,
		string(res.Urgency), res.Urgency.Rank(), res.RecommendedAction, res.Summary,
		pq.Array(res.Cautions), body,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return rec, nil
}

// GetRun loads one run including its full response.
func (r *Repository) GetRun(ctx context.Context, id string) (*pkg.RunRecord, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRunNotFound
	}
	var (
		rec  pkg.RunRecord
		body []byte
	)
	err = r.DB.QueryRowContext(ctx,
		`SELECT id, mode, provider, urgency, summary, created_at, response
         FROM triage_runs
         WHERE id = $1`, runID,
	).Scan(&rec.ID, &rec.Mode, &rec.Provider, &rec.Urgency, &rec.Summary, &rec.CreatedAt, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var resp pkg.TriageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get run %s: decode response: %w", id, err)
	}
	rec.Response = &resp
	return &rec, nil
}

// ListRuns returns the newest runs first, without their response bodies.
// Only runs at least as severe as minUrgency are returned; an empty
// minUrgency returns every run.
func (r *Repository) ListRuns(ctx context.Context, limit int, minUrgency pkg.UrgencyLevel) ([]pkg.RunRecord, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	minRank := 0
	if minUrgency != "" {
		minRank = minUrgency.Rank()
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, mode, provider, urgency, summary, created_at
         FROM triage_runs
         WHERE urgency_rank >= $1
         ORDER BY created_at DESC
         LIMIT $2`, minRank, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []pkg.RunRecord
	for rows.Next() {
		var rec pkg.RunRecord
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Provider, &rec.Urgency, &rec.Summary, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// CountByUrgency returns how many runs ended at each urgency level.
func (r *Repository) CountByUrgency(ctx context.Context) (map[pkg.UrgencyLevel]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT urgency, COUNT(*) FROM triage_runs GROUP BY urgency`)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()
	counts := make(map[pkg.UrgencyLevel]int, len(pkg.UrgencyLevels))
	for rows.Next() {
		var (
			urgency pkg.UrgencyLevel
			n       int
		)
		if err := rows.Scan(&urgency, &n); err != nil {
			return nil, fmt.Errorf("count runs: %w", err)
		}
		counts[urgency] = n
	}
	return counts, rows.Err()
}
