// Package store persists drafts as opaque JSON blobs keyed by draft id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
)

var ErrNotFound = errors.New("draft not found")

// Record is one stored draft. The phase is never stored; it is derived from
// the log when the draft is loaded.
type Record struct {
	Draft     engine.Draft
	Version   int
	UpdatedAt time.Time
}

type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Close() error
}

func encode(d engine.Draft) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	return b, nil
}

func decode(id string, b []byte) (engine.Draft, error) {
	var d engine.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return engine.Draft{}, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return d, nil
}
