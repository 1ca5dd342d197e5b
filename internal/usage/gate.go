// Package usage meters package creation against a monthly free-tier quota.
package usage

import (
	"context"
	"time"

	"github.com/jonathan/application-assistant/internal/types"
	"github.com/sirupsen/logrus"
)

// FreeLimit is the number of packages a Free-tier user may create per calendar month.
const FreeLimit = 3

// Reason explains a Decision.
type Reason string

// Reason constants
const (
	ReasonNew              Reason = "new"
	ReasonReset            Reason = "reset"
	ReasonPremium          Reason = "premium"
	ReasonFree             Reason = "free"
	ReasonFreeLimitReached Reason = "free-limit-reached"
	ReasonError            Reason = "error"
)

// Decision is the result of a quota check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Tier    types.Tier `json:"tier"`
	Reason  Reason     `json:"reason"`
	Used    int        `json:"used"`
	Limit   int        `json:"limit"`
}

// Counted reports whether a package created under this decision should be
// added to the monthly counter: only allowed Free-tier users whose tier was
// actually read from storage.
func (d Decision) Counted() bool {
	return d.Allowed && d.Tier == types.TierFree && d.Reason != ReasonError
}

// Store persists UsageState. GetUsage returns nil, nil when the user has no state yet.
type Store interface {
	GetUsage(ctx context.Context, userID string) (*types.UsageState, error)
	CreateUsage(ctx context.Context, state *types.UsageState) error
	ResetUsage(ctx context.Context, userID string, monthStart time.Time) error
	IncrementUsage(ctx context.Context, userID string) error
	SetEmailIfEmpty(ctx context.Context, userID, email string) error
	UpgradeByEmail(ctx context.Context, email, subscriptionID string, at time.Time) (bool, error)
}

// Gate decides whether a user may create another package.
// CheckAllowed followed by IncrementUsage is not atomic: concurrent requests
// from one user can both pass the check before either increments.
type Gate struct {
	store  Store
	logger logrus.FieldLogger
	now    func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate backed by store.
func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAllowed returns the quota decision for userID, creating or resetting
// the stored state as needed. Storage failures fail open.
func (g *Gate) CheckAllowed(ctx context.Context, userID, email string) Decision {
	now := g.now().UTC()
	log := g.logger.WithField("user_id", userID)

	state, err := g.store.GetUsage(ctx, userID)
	if err != nil {
		return g.failOpen(log, err, types.TierFree)
	}

	if state == nil {
		fresh := types.NewUsageState(userID, email, now)
		if err := g.store.CreateUsage(ctx, &fresh); err != nil {
			return g.failOpen(log, err, types.TierFree)
		}
		log.Debug("Created usage state")
		return Decision{Allowed: true, Tier: types.TierFree, Reason: ReasonNew, Used: 0, Limit: FreeLimit}
	}

	if state.Email == "" && email != "" {
		if err := g.store.SetEmailIfEmpty(ctx, userID, email); err != nil {
			log.WithError(err).Warn("Failed to record usage email")
		}
	}

	if !types.SameMonth(now, state.MonthStart) {
		if err := g.store.ResetUsage(ctx, userID, now); err != nil {
			return g.failOpen(log, err, tierOrFree(state.Tier))
		}
		log.WithField("previous_count", state.ApplicationsThisMonth).Info("Monthly usage reset")
		return Decision{Allowed: true, Tier: tierOrFree(state.Tier), Reason: ReasonReset, Used: 0, Limit: FreeLimit}
	}

	if state.Tier == types.TierPremium {
		return Decision{Allowed: true, Tier: types.TierPremium, Reason: ReasonPremium, Used: state.ApplicationsThisMonth, Limit: FreeLimit}
	}

	if state.ApplicationsThisMonth < FreeLimit {
		return Decision{Allowed: true, Tier: types.TierFree, Reason: ReasonFree, Used: state.ApplicationsThisMonth, Limit: FreeLimit}
	}

	log.WithField("used", state.ApplicationsThisMonth).Info("Free limit reached")
	return Decision{Allowed: false, Tier: types.TierFree, Reason: ReasonFreeLimitReached, Used: state.ApplicationsThisMonth, Limit: FreeLimit}
}

// IncrementUsage adds one to the user's monthly counter. Call it only after
// CheckAllowed allowed a Free-tier user and the package was created.
func (g *Gate) IncrementUsage(ctx context.Context, userID string) error {
	if err := g.store.IncrementUsage(ctx, userID); err != nil {
		g.logger.WithField("user_id", userID).WithError(err).Error("Failed to increment usage")
		return err
	}
	return nil
}

// UpgradeByEmail marks the account with this email as Premium with an active
// subscription. It reports false when no account matches. Re-delivery is a no-op.
func (g *Gate) UpgradeByEmail(ctx context.Context, email, subscriptionID string) (bool, error) {
	if email == "" {
		return false, nil
	}
	updated, err := g.store.UpgradeByEmail(ctx, email, subscriptionID, g.now().UTC())
	if err != nil {
		return false, err
	}
	g.logger.WithFields(logrus.Fields{
		"subscription_id": subscriptionID,
		"matched":         updated,
	}).Info("Processed tier upgrade")
	return updated, nil
}

// failOpen allows the request. tier is the best known tier; callers must not
// count usage under a ReasonError decision.
func (g *Gate) failOpen(log logrus.FieldLogger, err error, tier types.Tier) Decision {
	log.WithError(err).Warn("Usage check failed; allowing request")
	return Decision{Allowed: true, Tier: tier, Reason: ReasonError, Limit: FreeLimit}
}

func tierOrFree(t types.Tier) types.Tier {
	if t == types.TierPremium {
		return t
	}
	return types.TierFree
}
