package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

func (r Repo) InsertPrompt(ctx context.Context, tx *sql.Tx, p domain.Prompt) error {
	limitIDs, err := marshalStrings(p.LimitIDs)
	if err != nil {
		return err
	}
	constraints, err := json.Marshal(p.Constraints)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO prompts(id,created_at,seed,path_id,container_id,entry_point_id,limit_ids_json,text,constraints_json)
VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, calendar.FormatISO(p.CreatedAt), p.Seed, p.PathID, p.ContainerID, nullable(p.EntryPointID), limitIDs, p.Text, string(constraints))
	return err
}

const promptColumns = `id,created_at,seed,path_id,container_id,COALESCE(entry_point_id,''),limit_ids_json,text,constraints_json`

func scanPrompt(row rowScanner) (domain.Prompt, error) {
	var p domain.Prompt
	var createdAt, limitIDs, constraints string
	if err := row.Scan(&p.ID, &createdAt, &p.Seed, &p.PathID, &p.ContainerID, &p.EntryPointID, &limitIDs, &p.Text, &constraints); err != nil {
		return p, err
	}
	var err error
	if p.CreatedAt, err = calendar.ParseISO(createdAt); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(limitIDs), &p.LimitIDs); err != nil {
		return p, fmt.Errorf("prompt %s limit ids: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(constraints), &p.Constraints); err != nil {
		return p, fmt.Errorf("prompt %s constraints: %w", p.ID, err)
	}
	return p, nil
}

func (r Repo) GetPrompt(ctx context.Context, id string) (domain.Prompt, error) {
	p, err := scanPrompt(r.DB.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListPrompts returns prompts newest first; limit <= 0 means all.
func (r Repo) ListPrompts(ctx context.Context, limit int) ([]domain.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertLog(ctx context.Context, tx *sql.Tx, l domain.Log) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO logs(id,prompt_id,path_id,started_at,ended_at,duration_min,outcome,export_uri,notes) VALUES (?,?,?,?,?,?,?,?,?)`,
		l.ID, l.PromptID, l.PathID, calendar.FormatISO(l.StartedAt), nullableTimePtr(l.EndedAt), nullableIntPtr(l.DurationMin),
		string(l.Outcome), nullable(l.ExportURI), nullable(l.Notes))
	return err
}

type LogFilters struct {
	PathID  string
	Outcome string
}

// ListLogs returns logs newest first.
func (r Repo) ListLogs(ctx context.Context, f LogFilters) ([]domain.Log, error) {
	var clauses []string
	var args []any
	if f.PathID != "" {
		clauses = append(clauses, "path_id=?")
		args = append(args, f.PathID)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome=?")
		args = append(args, f.Outcome)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,prompt_id,path_id,started_at,ended_at,duration_min,outcome,COALESCE(export_uri,''),COALESCE(notes,'') FROM logs `+
		where+` ORDER BY started_at DESC, rowid DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Log
	for rows.Next() {
		var l domain.Log
		var startedAt, outcome string
		var endedAt sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(&l.ID, &l.PromptID, &l.PathID, &startedAt, &endedAt, &duration, &outcome, &l.ExportURI, &l.Notes); err != nil {
			return nil, err
		}
		if l.StartedAt, err = calendar.ParseISO(startedAt); err != nil {
			return nil, err
		}
		if l.EndedAt, err = optionalTime(endedAt); err != nil {
			return nil, err
		}
		l.DurationMin = optionalInt(duration)
		l.Outcome = domain.Outcome(outcome)
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) CountLogsForPath(ctx context.Context, tx *sql.Tx, pathID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT count(*) FROM logs WHERE path_id=?`, pathID).Scan(&n)
	return n, err
}

func (r Repo) DeleteLog(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM logs WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// GetSettings returns ErrNotFound until settings have been stored once.
func (r Repo) GetSettings(ctx context.Context) (domain.Settings, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT settings_json FROM settings WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Settings{}, ErrNotFound
	}
	if err != nil {
		return domain.Settings{}, err
	}
	s := domain.DefaultSettings()
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return domain.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func (r Repo) UpsertSettings(ctx context.Context, tx *sql.Tx, s domain.Settings, updatedAt string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO settings(id,settings_json,updated_at) VALUES (1,?,?)
ON CONFLICT(id) DO UPDATE SET settings_json=excluded.settings_json, updated_at=excluded.updated_at`, string(payload), updatedAt)
	return err
}

// LatestEvents returns the newest events first, optionally filtered by type.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),payload_json FROM events`
	var args []any
	if evtType != "" {
		query += ` WHERE type=?`
		args = append(args, evtType)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
