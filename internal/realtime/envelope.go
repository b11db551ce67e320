package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/model"
)

// ErrUnknownTable is returned for changes to tables noxstat does not track.
var ErrUnknownTable = errors.New("realtime: unknown table")

// Envelope is a table-level change as delivered by a transport. Records stay
// raw until a typed change is decoded for the table.
type Envelope struct {
	Table     model.Table     `json:"table"`
	Kind      Kind            `json:"type"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
	CommitAt  time.Time       `json:"commit_timestamp,omitempty"`
}

type webhookPayload struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
	CommitAt  string          `json:"commit_timestamp"`
}

// DecodeWebhook parses a database webhook body:
//
//	{"type":"INSERT","table":"tasks","schema":"public","record":{...},"old_record":null}
//
// The same JSON shape is used for Kafka change messages.
func DecodeWebhook(body []byte) (Envelope, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Envelope{}, fmt.Errorf("realtime: parsing payload: %w", err)
	}
	kind, err := ParseKind(p.Type)
	if err != nil {
		return Envelope{}, err
	}
	table := model.Table(p.Table)
	if !knownTable(table) {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownTable, p.Table)
	}

	env := Envelope{
		Table:     table,
		Kind:      kind,
		Record:    nonNull(p.Record),
		OldRecord: nonNull(p.OldRecord),
		CommitAt:  backend.ParseTimestamp(p.CommitAt),
	}
	if kind == Delete && env.OldRecord == nil {
		return Envelope{}, fmt.Errorf("realtime: delete on %s without old_record", table)
	}
	if kind != Delete && env.Record == nil {
		return Envelope{}, fmt.Errorf("realtime: %s on %s without record", kind, table)
	}
	return env, nil
}

// UserID returns the owning user of the changed record, if present.
func (e Envelope) UserID() string {
	var owner struct {
		UserID string `json:"user_id"`
	}
	raw := e.Record
	if raw == nil {
		raw = e.OldRecord
	}
	if raw != nil {
		_ = json.Unmarshal(raw, &owner)
	}
	return owner.UserID
}

func knownTable(t model.Table) bool {
	for _, known := range model.Tables {
		if t == known {
			return true
		}
	}
	return false
}

func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// DecodeChange decodes an envelope into a typed change using decode for
// the record bodies.
func DecodeChange[T Keyed](e Envelope, decode func([]byte) (T, error)) (Change[T], error) {
	c := Change[T]{Kind: e.Kind}
	if e.Record != nil {
		rec, err := decode(e.Record)
		if err != nil {
			return c, err
		}
		c.Record = rec
	}
	if e.OldRecord != nil {
		old, err := decode(e.OldRecord)
		if err != nil {
			return c, err
		}
		c.OldID = old.Key()
	}
	return c, nil
}
