package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local ResultStore.
type Memory struct {
	m      sync.Map // conversationID -> PendingResult
	maxAge time.Duration
	now    func() time.Time
}

func NewMemory(maxAge time.Duration) *Memory {
	return &Memory{maxAge: maxAge, now: time.Now}
}

func (s *Memory) Put(_ context.Context, conversationID string, r PendingResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.m.Store(conversationID, r)
	return nil
}

func (s *Memory) Get(_ context.Context, conversationID string) (PendingResult, bool, error) {
	v, ok := s.m.Load(conversationID)
	if !ok {
		return PendingResult{}, false, nil
	}
	r := v.(PendingResult)
	if expired(r, s.maxAge, s.now()) {
		s.m.CompareAndDelete(conversationID, v)
		return PendingResult{}, false, nil
	}
	return r, true, nil
}
