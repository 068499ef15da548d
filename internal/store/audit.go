package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuditLog implements AuditRepo on SQLite and adds the read side used by
// the `llm` commands and the reaper's retention pass.
type AuditLog struct {
	db  *sql.DB
	now func() time.Time
}

var _ AuditRepo = (*AuditLog)(nil)

func (a *AuditLog) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a *AuditLog) AppendLLMCall(ctx context.Context, c LLMCall) error {
	_, err := a.db.ExecContext(ctx, `INSERT INTO llm_calls
		(created_at, provider, model, purpose, input_tokens, output_tokens,
		 latency_ms, success, error_message, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.clock().UnixMilli(), c.Provider, c.Model, c.Purpose, c.InputTokens, c.OutputTokens,
		c.LatencyMs, c.Success, c.ErrorMessage, c.RequestBody, c.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

const llmCallColumns = `id, created_at, provider, model, purpose, input_tokens, output_tokens,
	latency_ms, success, error_message, request_body, response_body`

// QueryLLMCalls returns calls newest first.
func (a *AuditLog) QueryLLMCalls(ctx context.Context, opts QueryOpts) ([]LLMCallRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Purpose != "" {
		where = append(where, "purpose = ?")
		args = append(args, opts.Purpose)
	}
	if !opts.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.From.UnixMilli())
	}
	if !opts.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, opts.To.UnixMilli())
	}

	q := "SELECT " + llmCallColumns + " FROM llm_calls"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm calls: %w", err)
	}
	defer rows.Close()

	var out []LLMCallRecord
	for rows.Next() {
		rec, err := scanLLMCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetLLMCall returns the call with the given id, or nil if none exists.
func (a *AuditLog) GetLLMCall(ctx context.Context, id int64) (*LLMCallRecord, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+llmCallColumns+" FROM llm_calls WHERE id = ?", id)
	rec, err := scanLLMCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// UsageByPurpose aggregates token usage per purpose.
func (a *AuditLog) UsageByPurpose(ctx context.Context) ([]UsageRow, error) {
	return a.usage(ctx, "purpose")
}

// UsageByModel aggregates token usage per model.
func (a *AuditLog) UsageByModel(ctx context.Context) ([]UsageRow, error) {
	return a.usage(ctx, "model")
}

func (a *AuditLog) usage(ctx context.Context, column string) ([]UsageRow, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT %[1]s, COUNT(*),
		COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)
		FROM llm_calls GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s`, column))
	if err != nil {
		return nil, fmt.Errorf("query usage by %s: %w", column, err)
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var (
			r   UsageRow
			key string
		)
		if err := rows.Scan(&key, &r.Calls, &r.InputTokens, &r.OutputTokens, &r.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if column == "purpose" {
			r.Purpose = key
		} else {
			r.Model = key
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneBefore deletes calls recorded before t and returns how many were removed.
func (a *AuditLog) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM llm_calls WHERE created_at < ?", t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune llm calls: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLLMCall(s rowScanner) (*LLMCallRecord, error) {
	var (
		rec       LLMCallRecord
		createdMs int64
	)
	err := s.Scan(&rec.ID, &createdMs, &rec.Provider, &rec.Model, &rec.Purpose,
		&rec.InputTokens, &rec.OutputTokens, &rec.LatencyMs, &rec.Success,
		&rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan llm call: %w", err)
	}
	rec.Timestamp = time.UnixMilli(createdMs).UTC()
	return &rec, nil
}
