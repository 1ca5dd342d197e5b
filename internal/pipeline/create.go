// Package pipeline runs the create-application flow: check the usage quota,
// generate the package, persist the record, then meter the use.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/jonathan/application-assistant/internal/usage"
	"github.com/sirupsen/logrus"
)

// Quota is the part of the usage gate the pipeline needs.
type Quota interface {
	CheckAllowed(ctx context.Context, userID, email string) usage.Decision
	IncrementUsage(ctx context.Context, userID string) error
}

// Generator produces a package outcome for a request.
type Generator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (types.PackageOutcome, error)
}

// RecordSaver persists a new application record.
type RecordSaver interface {
	Save(ctx context.Context, record *types.ApplicationRecord) (uuid.UUID, error)
}

// CreateOptions holds the inputs for one application.
type CreateOptions struct {
	OwnerID        string
	Email          string
	Company        string
	JobTitle       string
	JobDescription string
	Resume         string
	Tools          []types.ToolName
}

// CreateResult is the outcome of CreateApplication.
// When Decision.Allowed is false nothing was generated and Record is nil.
type CreateResult struct {
	Decision usage.Decision
	Record   *types.ApplicationRecord
	Outcome  types.PackageOutcome
}

// Denied reports whether the quota blocked the request.
func (r *CreateResult) Denied() bool {
	return !r.Decision.Allowed
}

// SaveError is returned when the package was generated but could not be stored.
// The generated outcome is kept so the caller can retry without regenerating.
type SaveError struct {
	Outcome types.PackageOutcome
	Cause   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save application: %v", e.Cause)
}

func (e *SaveError) Unwrap() error {
	return e.Cause
}

// Runner wires the quota, generator and store together.
type Runner struct {
	quota     Quota
	generator Generator
	store     RecordSaver
	logger    logrus.FieldLogger
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithClock overrides the clock used for DateApplied.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner.
func NewRunner(quota Quota, generator Generator, store RecordSaver, opts ...Option) *Runner {
	r := &Runner{
		quota:     quota,
		generator: generator,
		store:     store,
		logger:    logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateApplication runs the full flow for one application.
//
// A quota denial is not an error: the result carries the decision and the
// caller shows the paywall. Invalid input and a missing provider credential
// are returned before any usage is recorded. A save failure returns *SaveError.
// The counter is incremented only for Free-tier callers after a successful
// save, and never when the quota check failed open; an increment failure is
// logged and does not fail the request.
func (r *Runner) CreateApplication(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	req, err := types.NewGenerationRequest(opts.JobDescription, opts.Resume, opts.Tools)
	if err != nil {
		return nil, err
	}

	log := r.logger.WithField("user_id", opts.OwnerID)

	decision := r.quota.CheckAllowed(ctx, opts.OwnerID, opts.Email)
	result := &CreateResult{Decision: decision}
	if !decision.Allowed {
		log.WithField("used", decision.Used).Info("Application blocked by usage limit")
		return result, nil
	}

	outcome, err := r.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Outcome = outcome

	record := &types.ApplicationRecord{
		OwnerID:        opts.OwnerID,
		Company:        opts.Company,
		JobTitle:       opts.JobTitle,
		JobDescription: opts.JobDescription,
		Resume:         opts.Resume,
		ToolsSelected:  req.Tools,
		Outputs:        outcome.Outputs,
		Status:         types.StatusApplied,
		DateApplied:    r.now().UTC(),
	}
	if _, err := r.store.Save(ctx, record); err != nil {
		log.WithError(err).Error("Failed to save application")
		return nil, &SaveError{Outcome: outcome, Cause: err}
	}
	result.Record = record

	if decision.Counted() {
		if err := r.quota.IncrementUsage(ctx, opts.OwnerID); err != nil {
			log.WithError(err).Warn("Application saved but usage was not counted")
		}
	}

	log.WithFields(logrus.Fields{
		"application_id": record.ID.String(),
		"tier":           decision.Tier,
		"failed_tools":   len(outcome.Errors),
	}).Info("Application created")

	return result, nil
}
