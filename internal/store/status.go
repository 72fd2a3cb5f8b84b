package store

import (
    "context"
    "sync"
    "time"
)

// Status is the status line of a session plus the facts it summarises.
type Status struct {
    Text     string                 `json:"text"`
    State    string                 `json:"state"`
    Pages    int                    `json:"pages"`
    Files    int                    `json:"files"`
    Selected int                    `json:"selected"`
    Merging  bool                   `json:"merging"`
    Updated  *time.Time             `json:"updated,omitempty"`
    Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Memory keeps statuses in process.
type Memory struct {
    mu sync.RWMutex
    m  map[string]Status
}

func NewMemory() *Memory { return &Memory{m: map[string]Status{}} }

func (s *Memory) Set(ctx context.Context, key string, st Status) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.m[key] = st
    return nil
}

func (s *Memory) Get(ctx context.Context, key string) (Status, bool, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    st, ok := s.m[key]
    return st, ok, nil
}

func (s *Memory) Ping(ctx context.Context) error { return nil }

func (s *Memory) Close() error { return nil }
