package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/application-assistant/internal/types"
)

// GetUsage retrieves a user's usage state, or nil if none exists.
func (db *DB) GetUsage(ctx context.Context, userID string) (*types.UsageState, error) {
	var state types.UsageState
	var tier, status string
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, email, tier, applications_this_month, month_start,
			subscription_status, subscription_id, upgraded_at
		 FROM usage_accounts WHERE user_id = $1`,
		userID,
	).Scan(&state.UserID, &state.Email, &tier, &state.ApplicationsThisMonth, &state.MonthStart,
		&status, &state.SubscriptionID, &state.UpgradedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageError("get usage", err)
	}
	state.Tier = types.Tier(tier)
	state.SubscriptionStatus = types.SubscriptionStatus(status)
	return &state, nil
}

// CreateUsage inserts a new usage state. An existing row is left untouched.
func (db *DB) CreateUsage(ctx context.Context, state *types.UsageState) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO usage_accounts (user_id, email, tier, applications_this_month, month_start, subscription_status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO NOTHING`,
		state.UserID, state.Email, string(state.Tier), state.ApplicationsThisMonth, state.MonthStart,
		string(state.SubscriptionStatus),
	)
	if err != nil {
		return storageError("create usage", err)
	}
	return nil
}

// ResetUsage zeroes the monthly counter and moves month_start forward.
func (db *DB) ResetUsage(ctx context.Context, userID string, monthStart time.Time) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE usage_accounts SET applications_this_month = 0, month_start = $1 WHERE user_id = $2`,
		monthStart, userID,
	)
	if err != nil {
		return storageError("reset usage", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("usage for %s: %w", userID, ErrNotFound)
	}
	return nil
}

// IncrementUsage adds one to the monthly counter.
func (db *DB) IncrementUsage(ctx context.Context, userID string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE usage_accounts SET applications_this_month = applications_this_month + 1 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return storageError("increment usage", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("usage for %s: %w", userID, ErrNotFound)
	}
	return nil
}

// SetEmailIfEmpty records email on an account created without one. A stored
// email is never replaced.
func (db *DB) SetEmailIfEmpty(ctx context.Context, userID, email string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE usage_accounts SET email = $2 WHERE user_id = $1 AND email = ''`,
		userID, email,
	)
	if err != nil {
		return storageError("set usage email", err)
	}
	return nil
}

// UpgradeByEmail sets every account with exactly this email to premium.
// It reports whether any account matched.
func (db *DB) UpgradeByEmail(ctx context.Context, email, subscriptionID string, at time.Time) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE usage_accounts
		 SET tier = 'premium', subscription_status = 'active', subscription_id = $1, upgraded_at = $2
		 WHERE email = $3`,
		subscriptionID, at, email,
	)
	if err != nil {
		return false, storageError("upgrade usage", err)
	}
	return tag.RowsAffected() > 0, nil
}
