// Package inmemory provides a map-backed thread.Store for tests and
// ephemeral deployments.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/frostpeakco/floe/pkg/thread"
)

// Store implements thread.Store using an in-memory map.
type Store struct {
	mu sync.RWMutex

	// messages maps cache id to message.
	messages map[string]*thread.Message
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		messages: make(map[string]*thread.Message),
	}
}

// Put stores a message. Returns true if newly inserted, false if a
// message with the same id already exists.
func (s *Store) Put(_ context.Context, msg *thread.Message) (bool, error) {
	if msg == nil {
		return false, errors.New("cannot store nil message")
	}
	if msg.ID == "" {
		return false, errors.New("cannot store message without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msg.ID]; ok {
		return false, nil
	}

	s.messages[msg.ID] = msg
	return true, nil
}

// Get retrieves a message by its cache id.
func (s *Store) Get(_ context.Context, id string) (*thread.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, thread.NotFoundError{ID: id}
	}

	return msg, nil
}

// ListThread returns a thread's messages oldest first.
func (s *Store) ListThread(_ context.Context, threadID int64) ([]*thread.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*thread.Message
	for _, msg := range s.messages {
		if msg.ThreadID == threadID {
			result = append(result, msg)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// DeleteThread removes all messages for a thread.
func (s *Store) DeleteThread(_ context.Context, threadID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, msg := range s.messages {
		if msg.ThreadID == threadID {
			delete(s.messages, id)
		}
	}

	return nil
}

// Close releases resources. A no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
