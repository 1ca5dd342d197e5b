package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/application-assistant/internal/types"
)

// MemoryStore is an in-process RecordStore and usage store.
// Records and states are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*types.ApplicationRecord
	order   map[uuid.UUID]int
	seq     int
	usage   map[string]*types.UsageState
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*types.ApplicationRecord),
		order:   make(map[uuid.UUID]int),
		usage:   make(map[string]*types.UsageState),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for CreatedAt.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

// Save stores a copy of record.
func (m *MemoryStore) Save(_ context.Context, record *types.ApplicationRecord) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareForSave(record, m.now().UTC())
	m.seq++
	m.records[record.ID] = copyRecord(record)
	m.order[record.ID] = m.seq
	return record.ID, nil
}

// GetByID returns a copy of the record, or nil if absent.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*types.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return copyRecord(record), nil
}

// QueryByOwner returns the owner's records, newest first.
func (m *MemoryStore) QueryByOwner(_ context.Context, ownerID string) ([]types.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := []types.ApplicationRecord{}
	for _, record := range m.records {
		if record.OwnerID == ownerID {
			records = append(records, *copyRecord(record))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return m.order[records[i].ID] > m.order[records[j].ID]
	})
	return records, nil
}

// UpdateStatus changes a record's status and recomputes CallbackReceived.
func (m *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status types.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	record.SetStatus(status)
	return nil
}

// GetUsage returns a copy of the user's state, or nil if absent.
func (m *MemoryStore) GetUsage(_ context.Context, userID string) (*types.UsageState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.usage[userID]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

// CreateUsage stores state unless the user already has one.
func (m *MemoryStore) CreateUsage(_ context.Context, state *types.UsageState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usage[state.UserID]; exists {
		return nil
	}
	cp := *state
	m.usage[state.UserID] = &cp
	return nil
}

// ResetUsage zeroes the counter and moves MonthStart forward.
func (m *MemoryStore) ResetUsage(_ context.Context, userID string, monthStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.usage[userID]
	if !ok {
		return fmt.Errorf("usage for %s: %w", userID, ErrNotFound)
	}
	state.ApplicationsThisMonth = 0
	state.MonthStart = monthStart
	return nil
}

// IncrementUsage adds one to the counter.
func (m *MemoryStore) IncrementUsage(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.usage[userID]
	if !ok {
		return fmt.Errorf("usage for %s: %w", userID, ErrNotFound)
	}
	state.ApplicationsThisMonth++
	return nil
}

// SetEmailIfEmpty fills in a blank email. A stored email is kept.
func (m *MemoryStore) SetEmailIfEmpty(_ context.Context, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.usage[userID]; ok && state.Email == "" {
		state.Email = email
	}
	return nil
}

// UpgradeByEmail sets every state with this email to premium.
func (m *MemoryStore) UpgradeByEmail(_ context.Context, email, subscriptionID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := false
	for _, state := range m.usage {
		if state.Email != email {
			continue
		}
		upgradedAt := at
		state.Tier = types.TierPremium
		state.SubscriptionStatus = types.SubscriptionActive
		state.SubscriptionID = subscriptionID
		state.UpgradedAt = &upgradedAt
		matched = true
	}
	return matched, nil
}

// SetUsage replaces a user's state.
func (m *MemoryStore) SetUsage(state types.UsageState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[state.UserID] = &state
}

func copyRecord(r *types.ApplicationRecord) *types.ApplicationRecord {
	cp := *r
	cp.ToolsSelected = append([]types.ToolName(nil), r.ToolsSelected...)
	if r.Outputs != nil {
		cp.Outputs = make(types.Outputs, len(r.Outputs))
		for k, v := range r.Outputs {
			cp.Outputs[k] = v
		}
	}
	return &cp
}
