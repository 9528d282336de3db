package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/CSRExport/internal/store"
)

// DefaultHistoryKey is the fixed key the job list is stored under.
const DefaultHistoryKey = "csr_export_history"

// HistoryStore persists and restores snapshots of the job list.
// It never mutates jobs; JobManager owns them.
type HistoryStore struct {
	kv  store.KV
	key string
}

// NewHistoryStore creates a history store writing under key.
// An empty key uses DefaultHistoryKey.
func NewHistoryStore(kv store.KV, key string) *HistoryStore {
	if key == "" {
		key = DefaultHistoryKey
	}
	return &HistoryStore{kv: kv, key: key}
}

// Key returns the storage key.
func (h *HistoryStore) Key() string {
	return h.key
}

// Load reads the persisted list. A missing key is an empty history.
func (h *HistoryStore) Load(ctx context.Context) ([]ExportJob, error) {
	data, err := h.kv.Get(ctx, h.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: h.key, Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}

	var jobs []ExportJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, &PersistenceError{Op: "decode", Key: h.key, Err: fmt.Errorf("corrupt history: %w", err)}
	}
	return jobs, nil
}

// Save writes the full list.
func (h *HistoryStore) Save(ctx context.Context, jobs []ExportJob) error {
	if jobs == nil {
		jobs = []ExportJob{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return &PersistenceError{Op: "encode", Key: h.key, Err: err}
	}
	if err := h.kv.Set(ctx, h.key, data); err != nil {
		return &PersistenceError{Op: "save", Key: h.key, Err: err}
	}
	return nil
}

// Clear removes the persisted list.
func (h *HistoryStore) Clear(ctx context.Context) error {
	if err := h.kv.Delete(ctx, h.key); err != nil {
		return &PersistenceError{Op: "clear", Key: h.key, Err: err}
	}
	return nil
}
