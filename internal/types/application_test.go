//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApplicationStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    ApplicationStatus
		wantErr bool
	}{
		{in: "applied", want: StatusApplied},
		{in: "Interviewed", want: StatusInterviewed},
		{in: " rejected ", want: StatusRejected},
		{in: "offer", want: StatusOffer},
		{in: "ghosted", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseApplicationStatus(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetStatus_RecomputesCallbackOnEveryTransition(t *testing.T) {
	r := &ApplicationRecord{Status: StatusApplied}

	transitions := []struct {
		status   ApplicationStatus
		callback bool
	}{
		{StatusInterviewed, true},
		{StatusRejected, false},
		{StatusOffer, true},
		{StatusApplied, false},
		{StatusOffer, true},
		{StatusInterviewed, true},
		{StatusRejected, false},
	}

	for _, tr := range transitions {
		r.SetStatus(tr.status)
		assert.Equal(t, tr.status, r.Status)
		assert.Equal(t, tr.callback, r.CallbackReceived, "status %s", tr.status)
	}
}

func TestComputeStats(t *testing.T) {
	records := []ApplicationRecord{
		{Status: StatusApplied},
		{Status: StatusInterviewed, CallbackReceived: true},
		{Status: StatusRejected},
	}

	stats := ComputeStats(records)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Callbacks)
	assert.Equal(t, 33, stats.SuccessRate)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.Interviewed)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 0, stats.Offers)

	records = append(records, ApplicationRecord{Status: StatusOffer, CallbackReceived: true})
	stats = ComputeStats(records)
	assert.Equal(t, 50, stats.SuccessRate)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Equal(t, ApplicationStats{}, stats)
}

func TestSameMonth(t *testing.T) {
	base := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, SameMonth(base, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameMonth(base, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameMonth(base, time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)))
}

func TestNewUsageState(t *testing.T) {
	now := time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)
	st := NewUsageState("user-1", "a@example.com", now)
	assert.Equal(t, TierFree, st.Tier)
	assert.Equal(t, 0, st.ApplicationsThisMonth)
	assert.Equal(t, now, st.MonthStart)
	assert.Equal(t, SubscriptionNone, st.SubscriptionStatus)
}
