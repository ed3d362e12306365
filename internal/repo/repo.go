package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// LoadCatalog reads every path and owned record in insertion order.
func (r Repo) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	var (
		c   domain.Catalog
		err error
	)
	if c.Paths, err = r.ListPaths(ctx); err != nil {
		return c, fmt.Errorf("list paths: %w", err)
	}
	if c.Containers, err = r.ListContainers(ctx, ""); err != nil {
		return c, fmt.Errorf("list containers: %w", err)
	}
	if c.EntryPoints, err = r.ListEntryPoints(ctx, ""); err != nil {
		return c, fmt.Errorf("list entry points: %w", err)
	}
	if c.Limits, err = r.ListLimits(ctx); err != nil {
		return c, fmt.Errorf("list limits: %w", err)
	}
	return c, nil
}

// ClearAll deletes all user data. Events and the schema are kept.
func (r Repo) ClearAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"logs", "prompts", "limits", "entry_points", "containers", "paths", "settings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTimePtr(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return calendar.FormatISO(*v)
}

func optionalInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func optionalTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := calendar.ParseISO(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalStrings(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
