// Package history keeps the append-only log of completed soil analyses in a
// persisted key-value store.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/thebtf/soilsense/internal/kv"
	"github.com/thebtf/soilsense/pkg/models"
)

// StorageKey is the store key holding the serialized history.
const StorageKey = "soilAnalysisHistory"

// Log is the in-memory mirror of the persisted history.
//
// Appends are read-modify-write cycles against the store and are serialized
// through a single-slot semaphore, so history order matches completion order.
// The in-memory view only changes after the store write succeeds.
type Log struct {
	store kv.Store
	key   string
	gate  *semaphore.Weighted

	mu      sync.RWMutex
	records []models.AnalysisRecord
}

// NewLog creates an empty log over store. Call Load to hydrate it.
func NewLog(store kv.Store) *Log {
	return &Log{
		store:   store,
		key:     StorageKey,
		gate:    semaphore.NewWeighted(1),
		records: []models.AnalysisRecord{},
	}
}

// Load hydrates the log from the store. A missing key yields an empty history.
// On failure the in-memory history is left empty.
func (l *Log) Load(ctx context.Context) error {
	records, err := l.read(ctx)
	if err != nil {
		l.replace([]models.AnalysisRecord{})
		log.Error().Err(err).Str("key", l.key).Msg("Failed to load analysis history")
		return err
	}
	l.replace(records)
	log.Debug().Int("records", len(records)).Msg("Analysis history loaded")
	return nil
}

// Append records a completed analysis. It reads the current persisted history,
// appends rec and writes the whole array back.
func (l *Log) Append(ctx context.Context, rec models.AnalysisRecord) error {
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer l.gate.Release(1)

	records, err := l.read(ctx)
	if err != nil {
		return err
	}

	records = append(records, rec)
	blob, err := Encode(records)
	if err != nil {
		return err
	}

	if err := l.store.Set(ctx, l.key, blob); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	l.replace(records)
	return nil
}

// Clear removes every record from the store and memory.
func (l *Log) Clear(ctx context.Context) error {
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer l.gate.Release(1)

	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	l.replace([]models.AnalysisRecord{})
	return nil
}

// Records returns a copy of the history, oldest first.
func (l *Log) Records() []models.AnalysisRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.AnalysisRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Recent returns up to limit of the newest records, oldest first.
// A limit <= 0 returns everything.
func (l *Log) Recent(limit int) []models.AnalysisRecord {
	all := l.Records()
	if limit <= 0 || limit >= len(all) {
		return all
	}
	return all[len(all)-limit:]
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Latest returns the newest record.
func (l *Log) Latest() (models.AnalysisRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return models.AnalysisRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

func (l *Log) read(ctx context.Context) ([]models.AnalysisRecord, error) {
	blob, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	if !ok {
		return []models.AnalysisRecord{}, nil
	}
	return Decode(blob)
}

func (l *Log) replace(records []models.AnalysisRecord) {
	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
}
