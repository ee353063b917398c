package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hyrily/hyrily/internal/company"
)

// Memory keeps records in process memory.
type Memory struct {
	mu        sync.RWMutex
	sessions  map[string]Session
	campaigns map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[string]Session),
		campaigns: make(map[string][]byte),
	}
}

func (m *Memory) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *Memory) SaveSession(_ context.Context, s Session) error {
	if s.ID == "" {
		return errEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) ListSessions(context.Context) ([]Session, error) {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sortSessions(out)
	return out, nil
}

// Campaigns are stored encoded so callers never share mutable state with the store.
func (m *Memory) GetCampaign(_ context.Context, id string) (*company.Campaign, error) {
	m.mu.RLock()
	data, ok := m.campaigns[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	return decodeCampaign(data)
}

func (m *Memory) SaveCampaign(_ context.Context, c *company.Campaign) error {
	if c == nil || c.ID == "" {
		return errEmptyID
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode campaign: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = data
	return nil
}

func (m *Memory) ListCampaigns(context.Context) ([]*company.Campaign, error) {
	m.mu.RLock()
	encoded := make([][]byte, 0, len(m.campaigns))
	for _, data := range m.campaigns {
		encoded = append(encoded, data)
	}
	m.mu.RUnlock()

	out := make([]*company.Campaign, 0, len(encoded))
	for _, data := range encoded {
		c, err := decodeCampaign(data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sortCampaigns(out)
	return out, nil
}

func decodeCampaign(data []byte) (*company.Campaign, error) {
	var c company.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}
	return &c, nil
}
