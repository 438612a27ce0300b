// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// ListOptions filters ListRuns.
type ListOptions struct {
	// Role restricts results to runs for this role (case-insensitive).
	Role string

	// Query restricts results to runs whose question contains this text.
	Query string

	// Limit caps the number of runs returned. Zero means no cap.
	Limit int
}

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, r types.RunReport) error {
	if r.RunID == "" {
		return fmt.Errorf("saving run: empty run id")
	}

	topics, err := json.Marshal(r.Topics)
	if err != nil {
		return fmt.Errorf("encoding run %s topics: %w", r.RunID, err)
	}
	sources, err := json.Marshal(r.Sources)
	if err != nil {
		return fmt.Errorf("encoding run %s sources: %w", r.RunID, err)
	}
	kpis, err := json.Marshal(r.KPIs)
	if err != nil {
		return fmt.Errorf("encoding run %s kpis: %w", r.RunID, err)
	}

	var evaluation sql.NullString
	if r.Evaluation != nil {
		data, err := json.Marshal(r.Evaluation)
		if err != nil {
			return fmt.Errorf("encoding run %s evaluation: %w", r.RunID, err)
		}
		evaluation = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(id, created_at, role, question, step_back_summary, topics, probe, sources, summary, evaluation, evaluation_raw, kpis)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CreatedAt.UTC().Format(timeLayout), r.Role, r.Question, r.StepBackSummary,
		string(topics), r.Probe, string(sources), r.Summary, evaluation, r.EvaluationRaw, string(kpis),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.RunID, err)
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (types.RunReport, error) {
	runs, err := s.queryRuns(ctx, `WHERE id = ?`, []any{id}, 1)
	if err != nil {
		return types.RunReport{}, err
	}
	if len(runs) == 0 {
		return types.RunReport{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]types.RunReport, error) {
	var where []string
	var args []any
	if opts.Role != "" {
		where = append(where, "LOWER(role) = LOWER(?)")
		args = append(args, opts.Role)
	}
	if opts.Query != "" {
		where = append(where, "question LIKE ?")
		args = append(args, "%"+opts.Query+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	return s.queryRuns(ctx, clause, args, opts.Limit)
}

func (s *Store) queryRuns(ctx context.Context, clause string, args []any, limit int) ([]types.RunReport, error) {
	query := `SELECT id, created_at, role, question, step_back_summary, topics, probe, sources,
			summary, evaluation, evaluation_raw, kpis
		FROM runs ` + clause + ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunReport
	for rows.Next() {
		var (
			r                                  types.RunReport
			createdAt                          string
			stepBack, topics, probe, sources   sql.NullString
			summary, evaluation, evalRaw, kpis sql.NullString
		)
		if err := rows.Scan(&r.RunID, &createdAt, &r.Role, &r.Question, &stepBack, &topics, &probe,
			&sources, &summary, &evaluation, &evalRaw, &kpis); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		created, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: parsing created_at: %w", r.RunID, err)
		}
		r.CreatedAt = created
		r.StepBackSummary = stepBack.String
		r.Probe = probe.String
		r.Summary = summary.String
		r.EvaluationRaw = evalRaw.String
		for _, col := range []struct {
			name string
			val  sql.NullString
			dst  any
		}{
			{"topics", topics, &r.Topics},
			{"sources", sources, &r.Sources},
			{"kpis", kpis, &r.KPIs},
		} {
			if !col.val.Valid {
				continue
			}
			if err := json.Unmarshal([]byte(col.val.String), col.dst); err != nil {
				return nil, fmt.Errorf("run %s: decoding %s: %w", r.RunID, col.name, err)
			}
		}
		if evaluation.Valid {
			var report types.EvaluationReport
			if err := json.Unmarshal([]byte(evaluation.String), &report); err != nil {
				return nil, fmt.Errorf("run %s: decoding evaluation: %w", r.RunID, err)
			}
			r.Evaluation = &report
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
