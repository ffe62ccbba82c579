package txlog

import (
	"context"
	"errors"
	"sync"
)

// ErrDuplicateRecord rejects a second append with an already used id.
var ErrDuplicateRecord = errors.New("record already appended")

type memoryLog struct {
	mu      sync.RWMutex
	records []Record
	ids     map[string]struct{}
}

// NewMemoryLog creates an in-memory transaction log.
func NewMemoryLog() Log {
	return &memoryLog{ids: make(map[string]struct{})}
}

func (l *memoryLog) Append(_ context.Context, record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.ids[record.ID]; exists {
		return ErrDuplicateRecord
	}
	l.ids[record.ID] = struct{}{}
	l.records = append(l.records, record.clone())
	return nil
}

func (l *memoryLog) List(_ context.Context) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.clone()
	}
	return out, nil
}
