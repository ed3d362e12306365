package repo

import (
	"context"
	"database/sql"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

func (r Repo) InsertContainer(ctx context.Context, tx *sql.Tx, c domain.Container) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO containers(id,path_id,name,description) VALUES (?,?,?,?)`,
		c.ID, c.PathID, c.Name, nullable(c.Description))
	return err
}

// ListContainers returns containers in creation order, optionally for one path.
func (r Repo) ListContainers(ctx context.Context, pathID string) ([]domain.Container, error) {
	query := `SELECT id,path_id,name,COALESCE(description,'') FROM containers`
	var args []any
	if pathID != "" {
		query += ` WHERE path_id=?`
		args = append(args, pathID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Container
	for rows.Next() {
		var c domain.Container
		if err := rows.Scan(&c.ID, &c.PathID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteContainer(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM containers WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r Repo) InsertEntryPoint(ctx context.Context, tx *sql.Tx, e domain.EntryPoint) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO entry_points(id,path_id,name,description) VALUES (?,?,?,?)`,
		e.ID, e.PathID, e.Name, nullable(e.Description))
	return err
}

// ListEntryPoints returns entry points in creation order, optionally for one path.
func (r Repo) ListEntryPoints(ctx context.Context, pathID string) ([]domain.EntryPoint, error) {
	query := `SELECT id,path_id,name,COALESCE(description,'') FROM entry_points`
	var args []any
	if pathID != "" {
		query += ` WHERE path_id=?`
		args = append(args, pathID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EntryPoint
	for rows.Next() {
		var e domain.EntryPoint
		if err := rows.Scan(&e.ID, &e.PathID, &e.Name, &e.Description); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) DeleteEntryPoint(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM entry_points WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r Repo) InsertLimit(ctx context.Context, tx *sql.Tx, l domain.Limit) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO limits(id,path_id,name,formula) VALUES (?,?,?,?)`,
		l.ID, nullable(l.Scope.PathID()), l.Name, nullable(l.Formula))
	return err
}

// ListLimits returns all limits in creation order; a NULL path_id is a global limit.
func (r Repo) ListLimits(ctx context.Context) ([]domain.Limit, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,COALESCE(path_id,''),name,COALESCE(formula,'') FROM limits ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Limit
	for rows.Next() {
		var l domain.Limit
		var pathID string
		if err := rows.Scan(&l.ID, &pathID, &l.Name, &l.Formula); err != nil {
			return nil, err
		}
		l.Scope = domain.ParseLimitScope(pathID)
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) DeleteLimit(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM limits WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}
