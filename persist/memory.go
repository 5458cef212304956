// Package persist implements the storage gateways of a ledger: each one keeps
// opaque JSON record arrays keyed by collection name.
package persist

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// Memory keeps collections in memory. Its zero value is ready to use.
type Memory struct {
	mu   sync.Mutex
	data map[string][]json.RawMessage

	// Err, when set, is returned by every Save.
	Err error
}

func (m *Memory) Load(_ context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRecords(m.data[collection]), nil
}

func (m *Memory) Save(_ context.Context, collection string, records []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.data == nil {
		m.data = make(map[string][]json.RawMessage)
	}
	m.data[collection] = cloneRecords(records)
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneRecords(records []json.RawMessage) []json.RawMessage {
	if records == nil {
		return nil
	}
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = slices.Clone(r)
	}
	return out
}
