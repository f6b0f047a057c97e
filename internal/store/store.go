// Package store persists conversation snapshots between turns.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// ErrNotFound is returned when no snapshot exists for a conversation.
var ErrNotFound = errors.New("conversation not found")

// Conversations loads and saves conversation snapshots keyed by conversation id.
type Conversations interface {
	Load(ctx context.Context, id string) (wager.State, error)
	Save(ctx context.Context, s wager.State) error
}

// WagerFinder looks up the conversation that produced a wager.
type WagerFinder interface {
	FindByWager(ctx context.Context, wagerID string) (wager.State, error)
}

func encode(s wager.State) ([]byte, error) {
	if s.ConversationID == "" {
		return nil, errors.New("conversation id required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation %s: %w", s.ConversationID, err)
	}
	return data, nil
}

func decode(id string, data []byte) (wager.State, error) {
	var s wager.State
	if err := json.Unmarshal(data, &s); err != nil {
		return wager.State{}, fmt.Errorf("unmarshal conversation %s: %w", id, err)
	}
	return s, nil
}

// Memory keeps snapshots in process. Snapshots are stored encoded so callers
// never share pointers with the store.
type Memory struct {
	mu    sync.RWMutex
	convs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{convs: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, id string) (wager.State, error) {
	m.mu.RLock()
	data, ok := m.convs[id]
	m.mu.RUnlock()
	if !ok {
		return wager.State{}, ErrNotFound
	}
	return decode(id, data)
}

func (m *Memory) Save(_ context.Context, s wager.State) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.convs[s.ConversationID] = data
	m.mu.Unlock()
	return nil
}

// FindByWager scans the stored snapshots for the one whose output is wagerID.
func (m *Memory) FindByWager(_ context.Context, wagerID string) (wager.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, data := range m.convs {
		s, err := decode(id, data)
		if err != nil {
			return wager.State{}, err
		}
		if s.Output != nil && s.Output.ID == wagerID {
			return s, nil
		}
	}
	return wager.State{}, ErrNotFound
}

// Len returns the number of stored conversations.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}

// Tiered reads through a cache in front of a durable store. Saves go to the
// durable store first; a cache failure is not an error.
type Tiered struct {
	cache   Conversations
	durable Conversations
}

func NewTiered(cache, durable Conversations) *Tiered {
	return &Tiered{cache: cache, durable: durable}
}

func (t *Tiered) Load(ctx context.Context, id string) (wager.State, error) {
	if s, err := t.cache.Load(ctx, id); err == nil {
		return s, nil
	}
	s, err := t.durable.Load(ctx, id)
	if err != nil {
		return wager.State{}, err
	}
	_ = t.cache.Save(ctx, s)
	return s, nil
}

func (t *Tiered) Save(ctx context.Context, s wager.State) error {
	if err := t.durable.Save(ctx, s); err != nil {
		return err
	}
	_ = t.cache.Save(ctx, s)
	return nil
}

// FindByWager asks the durable store, which is the only tier that indexes
// wagers.
func (t *Tiered) FindByWager(ctx context.Context, wagerID string) (wager.State, error) {
	f, ok := t.durable.(WagerFinder)
	if !ok {
		return wager.State{}, ErrNotFound
	}
	return f.FindByWager(ctx, wagerID)
}
