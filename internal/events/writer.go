package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
)

// Event types written by the engine.
const (
	PromptGenerated = "prompt.generated"
	PromptBlocked   = "prompt.blocked"
	LogRecorded     = "log.recorded"
	LogDeleted      = "log.deleted"
	PathCreated     = "path.created"
	PathUpdated     = "path.updated"
	PathArchived    = "path.archived"
	PathRemoved     = "path.removed"
	ChildAdded      = "catalog.added"
	ChildRemoved    = "catalog.removed"
	SettingsUpdated = "settings.updated"
	DataImported    = "data.imported"
	DataReset       = "data.reset"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := calendar.FormatISO(w.Now())
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
