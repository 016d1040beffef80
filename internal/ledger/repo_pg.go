package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Record inserts the event. Redelivered webhook events hit the dedupe index and are ignored.
func (r *PGRepo) Record(ctx context.Context, event Event) error {
	const query = `
INSERT INTO ledger_events (id, kind, event_type, reference, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING`
	payload, err := marshalJSONB(event.Payload)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		event.ID,
		event.Kind,
		event.EventType,
		nullString(event.Reference),
		payload,
		event.CreatedAt,
	)
	return err
}

func marshalJSONB(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
