package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

const pathColumns = `id,name,COALESCE(color,''),active,weekly_target`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPath(row rowScanner) (domain.Path, error) {
	var p domain.Path
	var target sql.NullInt64
	var active int
	if err := row.Scan(&p.ID, &p.Name, &p.Color, &active, &target); err != nil {
		return p, err
	}
	p.Active = active != 0
	p.WeeklyTarget = optionalInt(target)
	return p, nil
}

func (r Repo) InsertPath(ctx context.Context, tx *sql.Tx, p domain.Path, createdAt time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO paths(id,name,color,active,weekly_target,created_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Color), boolInt(p.Active), nullableIntPtr(p.WeeklyTarget), calendar.FormatISO(createdAt))
	return err
}

func (r Repo) GetPath(ctx context.Context, id string) (domain.Path, error) {
	p, err := scanPath(r.DB.QueryRowContext(ctx, `SELECT `+pathColumns+` FROM paths WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListPaths returns paths in creation order.
func (r Repo) ListPaths(ctx context.Context) ([]domain.Path, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+pathColumns+` FROM paths ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Path
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// PathUpdate carries the fields to change; nil fields are left alone.
type PathUpdate struct {
	Name         *string
	Color        *string
	Active       *bool
	WeeklyTarget *int
}

func (r Repo) UpdatePath(ctx context.Context, tx *sql.Tx, id string, u PathUpdate) error {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Color != nil {
		fields = append(fields, "color=?")
		args = append(args, nullable(*u.Color))
	}
	if u.Active != nil {
		fields = append(fields, "active=?")
		args = append(args, boolInt(*u.Active))
	}
	if u.WeeklyTarget != nil {
		fields = append(fields, "weekly_target=?")
		args = append(args, *u.WeeklyTarget)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE paths SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeletePath removes the path; owned containers, entry points and limits cascade.
func (r Repo) DeletePath(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM paths WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
