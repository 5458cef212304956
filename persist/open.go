package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Store is a gateway that may hold resources.
type Store interface {
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	Save(ctx context.Context, collection string, records []json.RawMessage) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend. For jsonl, path is a folder; for
// sqlite, a database file, or a folder where "ledger.db" is created.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return &Memory{}, nil
	case BackendJSONL, "":
		return NewDir(path)
	case BackendSQLite:
		if filepath.Ext(path) == "" {
			if _, err := NewDir(path); err != nil {
				return nil, err
			}
			path = filepath.Join(path, "ledger.db")
		}
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q, want one of %s, %s, %s", backend, BackendMemory, BackendJSONL, BackendSQLite)
	}
}
