package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(owner, company string) *types.ApplicationRecord {
	return &types.ApplicationRecord{
		OwnerID:        owner,
		Company:        company,
		JobTitle:       "Engineer",
		JobDescription: "Build services",
		Resume:         "Built services",
		ToolsSelected:  []types.ToolName{types.ToolResume, types.ToolCoverLetter},
		Outputs:        types.Outputs{types.ToolResume: "R"},
	}
}

func TestMemoryStore_SaveAssignsServerFields(t *testing.T) {
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	record := newRecord("user-1", "Acme")
	record.CallbackReceived = true

	id, err := store.Save(ctx, record)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now, record.DateApplied)
	assert.Equal(t, types.StatusApplied, record.Status)
	assert.False(t, record.CallbackReceived, "callback is derived from status")
}

func TestMemoryStore_RoundTripOutputs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := newRecord("user-1", "Acme")
	record.Outputs = types.Outputs{
		types.ToolResume:      "Jane Doe\n- Shipped",
		types.ToolCoverLetter: "Dear team,",
	}
	id, err := store.Save(ctx, record)
	require.NoError(t, err)

	loaded, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, record.Outputs, loaded.Outputs)
	assert.Equal(t, record.ToolsSelected, loaded.ToolsSelected)

	// Mutating the returned copy does not affect the stored record.
	loaded.Outputs[types.ToolResume] = "changed"
	again, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n- Shipped", again.Outputs[types.ToolResume])
}

func TestMemoryStore_GetByID_NotFound(t *testing.T) {
	store := NewMemoryStore()
	record, err := store.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestMemoryStore_QueryByOwner_NewestFirst(t *testing.T) {
	clock := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	ctx := context.Background()

	for _, company := range []string{"First", "Second", "Third"} {
		_, err := store.Save(ctx, newRecord("user-1", company))
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, newRecord("user-2", "Other"))
	require.NoError(t, err)

	records, err := store.QueryByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Third", records[0].Company)
	assert.Equal(t, "Second", records[1].Company)
	assert.Equal(t, "First", records[2].Company)

	none, err := store.QueryByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Save(ctx, newRecord("user-1", "Acme"))
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, id, types.StatusOffer))
	record, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOffer, record.Status)
	assert.True(t, record.CallbackReceived)

	require.NoError(t, store.UpdateStatus(ctx, id, types.StatusRejected))
	record, err = store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, record.CallbackReceived)

	err = store.UpdateStatus(ctx, uuid.New(), types.StatusOffer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Usage(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	state, err := store.GetUsage(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, state)

	fresh := types.NewUsageState("user-1", "jane@example.com", now)
	require.NoError(t, store.CreateUsage(ctx, &fresh))
	require.NoError(t, store.IncrementUsage(ctx, "user-1"))
	require.NoError(t, store.IncrementUsage(ctx, "user-1"))

	// CreateUsage does not clobber existing state.
	require.NoError(t, store.CreateUsage(ctx, &fresh))

	state, err = store.GetUsage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.ApplicationsThisMonth)

	next := now.AddDate(0, 1, 0)
	require.NoError(t, store.ResetUsage(ctx, "user-1", next))
	state, err = store.GetUsage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ApplicationsThisMonth)
	assert.Equal(t, next, state.MonthStart)

	assert.ErrorIs(t, store.IncrementUsage(ctx, "ghost"), ErrNotFound)
	assert.ErrorIs(t, store.ResetUsage(ctx, "ghost", now), ErrNotFound)
}

func TestMemoryStore_UpgradeByEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	fresh := types.NewUsageState("user-1", "jane@example.com", now)
	require.NoError(t, store.CreateUsage(ctx, &fresh))

	matched, err := store.UpgradeByEmail(ctx, "nobody@example.com", "sub_1", now)
	require.NoError(t, err)
	assert.False(t, matched)

	for i := 0; i < 2; i++ {
		matched, err = store.UpgradeByEmail(ctx, "jane@example.com", "sub_1", now)
		require.NoError(t, err)
		assert.True(t, matched)
	}

	state, err := store.GetUsage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, types.TierPremium, state.Tier)
	assert.Equal(t, types.SubscriptionActive, state.SubscriptionStatus)
	assert.Equal(t, "sub_1", state.SubscriptionID)
	require.NotNil(t, state.UpgradedAt)
	assert.Equal(t, now, *state.UpgradedAt)
}

func TestStorageError(t *testing.T) {
	err := storageError("save application", assert.AnError)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to save application")
}
