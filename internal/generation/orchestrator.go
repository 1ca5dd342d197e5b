// Package generation runs the selected tools for one application package and
// partitions their results into outputs and per-tool errors.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/application-assistant/internal/llm"
	"github.com/jonathan/application-assistant/internal/prompts"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle position of one tool within a run.
type State string

// State constants
const (
	StatePending    State = "pending"
	StateGenerating State = "generating"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ProgressEvent represents a tool state change during a run
type ProgressEvent struct {
	Tool    types.ToolName `json:"tool"`
	State   State          `json:"state"`
	Message string         `json:"message,omitempty"`
}

// ProgressCallback is called when a tool changes state
type ProgressCallback func(event ProgressEvent)

// Result is the outcome of one tool: Text on success, Reason and Err on failure.
type Result struct {
	Tool   types.ToolName
	Text   string
	Reason string
	Err    error
}

// Succeeded reports whether the tool produced output.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Orchestrator fans a GenerationRequest out to one LLM call per tool.
type Orchestrator struct {
	client      llm.Client
	logger      logrus.FieldLogger
	concurrency int
	onProgress  ProgressCallback
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithConcurrency allows up to n tool calls in flight. n <= 1 runs tools sequentially.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithProgress registers a callback for tool state changes.
// With concurrency enabled the callback may be invoked from several goroutines.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) {
		o.onProgress = cb
	}
}

// New creates an Orchestrator around a generation client.
func New(client llm.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		logger:      logrus.StandardLogger(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe returns a copy of o that reports tool state changes to cb.
// The copy shares the client; o itself is unchanged.
func (o *Orchestrator) Observe(cb ProgressCallback) *Orchestrator {
	c := *o
	c.onProgress = cb
	return &c
}

// Generate runs every requested tool and returns the partitioned outcome.
// A failing tool is recorded in Errors and never prevents its siblings from
// running. The returned error is non-nil only for invalid input or a missing
// provider credential.
func (o *Orchestrator) Generate(ctx context.Context, req types.GenerationRequest) (types.PackageOutcome, error) {
	req, err := types.NewGenerationRequest(req.JobDescription, req.Resume, req.Tools)
	if err != nil {
		return types.PackageOutcome{}, err
	}

	start := time.Now()
	for _, tool := range req.Tools {
		o.emit(tool, StatePending, "")
	}

	var results []Result
	if o.concurrency > 1 && len(req.Tools) > 1 {
		results, err = o.runConcurrent(ctx, req)
	} else {
		results, err = o.runSequential(ctx, req)
	}
	if err != nil {
		return types.PackageOutcome{}, err
	}

	outcome := fold(results)
	o.logger.WithFields(logrus.Fields{
		"tools":     len(req.Tools),
		"succeeded": len(outcome.Outputs),
		"failed":    len(outcome.Errors),
		"duration":  time.Since(start),
	}).Info("Package generation completed")

	return outcome, nil
}

// Complete runs a single standalone prompt with the tool's token budget.
// Errors are returned unchanged from the client.
func (o *Orchestrator) Complete(ctx context.Context, tool types.ToolName, prompt string) (string, error) {
	o.emit(tool, StateGenerating, "")
	text, err := o.client.Generate(ctx, prompt, SpecFor(tool).MaxTokens)
	if err != nil {
		o.logFailure(tool, err)
		o.emit(tool, StateFailed, SpecFor(tool).FailureReason)
		return "", err
	}
	o.emit(tool, StateSucceeded, "")
	return text, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, req types.GenerationRequest) ([]Result, error) {
	results := make([]Result, 0, len(req.Tools))
	for _, tool := range req.Tools {
		res := o.runTool(ctx, tool, req)
		if isConfigurationError(res.Err) {
			return nil, res.Err
		}
		results = append(results, res)
	}
	return results, nil
}

func (o *Orchestrator) runConcurrent(ctx context.Context, req types.GenerationRequest) ([]Result, error) {
	results := make([]Result, len(req.Tools))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, tool := range req.Tools {
		g.Go(func() error {
			res := o.runTool(gCtx, tool, req)
			if isConfigurationError(res.Err) {
				return res.Err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) runTool(ctx context.Context, tool types.ToolName, req types.GenerationRequest) Result {
	spec := SpecFor(tool)

	prompt, err := prompts.ForTool(tool, req.JobDescription, req.Resume)
	if err != nil {
		o.emit(tool, StateFailed, spec.FailureReason)
		return Result{Tool: tool, Reason: spec.FailureReason, Err: err}
	}

	o.emit(tool, StateGenerating, "")
	text, err := o.client.Generate(ctx, prompt, spec.MaxTokens)
	if err != nil {
		o.logFailure(tool, err)
		o.emit(tool, StateFailed, spec.FailureReason)
		return Result{Tool: tool, Reason: spec.FailureReason, Err: err}
	}

	o.emit(tool, StateSucceeded, "")
	return Result{Tool: tool, Text: text}
}

// fold partitions results in order. Errors stays nil when nothing failed.
func fold(results []Result) types.PackageOutcome {
	outcome := types.PackageOutcome{Outputs: make(types.Outputs, len(results))}
	for _, res := range results {
		if res.Succeeded() {
			outcome.Outputs[res.Tool] = res.Text
			continue
		}
		if outcome.Errors == nil {
			outcome.Errors = make(map[types.ToolName]string)
		}
		outcome.Errors[res.Tool] = res.Reason
	}
	return outcome
}

func (o *Orchestrator) emit(tool types.ToolName, state State, message string) {
	o.logger.WithFields(logrus.Fields{"tool": tool, "state": state}).Debug("Tool state changed")
	if o.onProgress != nil {
		o.onProgress(ProgressEvent{Tool: tool, State: state, Message: message})
	}
}

func (o *Orchestrator) logFailure(tool types.ToolName, err error) {
	o.logger.WithFields(logrus.Fields{
		"tool":  tool,
		"error": fmt.Sprint(err),
	}).Warn("Tool generation failed")
}

func isConfigurationError(err error) bool {
	var cfgErr *llm.ConfigurationError
	return errors.As(err, &cfgErr)
}
