package types

import "time"

// Tier is a user's subscription level.
type Tier string

// Tier constants
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// SubscriptionStatus tracks the payment state behind a tier.
type SubscriptionStatus string

// SubscriptionStatus constants
const (
	SubscriptionNone   SubscriptionStatus = "none"
	SubscriptionActive SubscriptionStatus = "active"
)

// UsageState is the per-user quota record.
type UsageState struct {
	UserID                string             `json:"user_id"`
	Email                 string             `json:"email,omitempty"`
	Tier                  Tier               `json:"tier"`
	ApplicationsThisMonth int                `json:"applications_this_month"`
	MonthStart            time.Time          `json:"month_start"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status"`
	SubscriptionID        string             `json:"subscription_id,omitempty"`
	UpgradedAt            *time.Time         `json:"upgraded_at,omitempty"`
}

// NewUsageState returns the initial state for a user seen for the first time.
func NewUsageState(userID, email string, now time.Time) UsageState {
	return UsageState{
		UserID:             userID,
		Email:              email,
		Tier:               TierFree,
		MonthStart:         now,
		SubscriptionStatus: SubscriptionNone,
	}
}

// SameMonth reports whether a and b fall in the same calendar (year, month).
// Both instants are compared in UTC.
func SameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
