package storage

import (
	"context"
	"sync"

	"codegraph/internal/types"
)

// InMemoryFeedbackLog is a goroutine-safe FeedbackLog used in tests and as a
// drop-in when no sqlite path is configured.
type InMemoryFeedbackLog struct {
	mu        sync.RWMutex
	events    map[string]*types.FeedbackEvent
	revisions []types.RevisionRecord
}

// NewInMemoryFeedbackLog creates an empty log.
func NewInMemoryFeedbackLog() *InMemoryFeedbackLog {
	return &InMemoryFeedbackLog{events: make(map[string]*types.FeedbackEvent)}
}

// AppendEvent implements FeedbackLog.
func (l *InMemoryFeedbackLog) AppendEvent(_ context.Context, e *types.FeedbackEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *e
	l.events[e.ID] = &cp
	return nil
}

// UpdateEventStatus implements FeedbackLog.
func (l *InMemoryFeedbackLog) UpdateEventStatus(_ context.Context, id string, status types.FeedbackStatus, attempt int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.Attempt = attempt
	return nil
}

// AppendRevision implements FeedbackLog.
func (l *InMemoryFeedbackLog) AppendRevision(_ context.Context, r *types.RevisionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revisions = append(l.revisions, *r)
	return nil
}

// History implements FeedbackLog.
func (l *InMemoryFeedbackLog) History(_ context.Context, entityID string) ([]types.RevisionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []types.RevisionRecord
	for _, r := range l.revisions {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close implements FeedbackLog.
func (l *InMemoryFeedbackLog) Close() error { return nil }
