// Package snapshots persists the durable state of an exchange session.
package snapshots

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/unocoin/internal/modules/trades"
)

// Snapshot is the durable state of a session. Its JSON form is the public serialization of the
// session; the same field names are used for the stored msgpack blob.
type Snapshot struct {
	User         string          `json:"user"`
	OfflineToken string          `json:"offline_token"`
	AutoLogin    bool            `json:"auto_login"`
	Trades       []trades.Record `json:"trades"`
}

// Encode packs s into a msgpack blob
func Encode(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode unpacks a blob produced by Encode
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// Repository stores snapshots by session name
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a snapshot repository over the session database
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Save upserts the snapshot for name
func (r *Repository) Save(ctx context.Context, name string, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO session_snapshots (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}
	return nil
}

// Load returns the snapshot for name. found is false when none has been saved.
func (r *Repository) Load(ctx context.Context, name string) (s Snapshot, found bool, err error) {
	var data []byte
	err = r.db.QueryRowContext(ctx, "SELECT data FROM session_snapshots WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to load snapshot %s: %w", name, err)
	}

	s, err = Decode(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}
