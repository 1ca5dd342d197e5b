package generation

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/application-assistant/internal/llm"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient answers by matching a marker in the prompt.
type fakeClient struct {
	mu       sync.Mutex
	fail     map[string]error // prompt marker -> error
	calls    []string
	budgets  []int
	response func(prompt string) string
}

func (f *fakeClient) Generate(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	f.budgets = append(f.budgets, maxTokens)
	for marker, err := range f.fail {
		if strings.Contains(prompt, marker) {
			return "", err
		}
	}
	if f.response != nil {
		return f.response(prompt), nil
	}
	return "generated", nil
}

func (f *fakeClient) Close() error { return nil }

// Markers that identify each tool's prompt.
const (
	markerCoverLetter   = "cover letter writer"
	markerInterviewPrep = "interview coach"
	markerJobAnalyzer   = "job description analyst"
	markerLinkedIn      = "LinkedIn profile optimization"
	markerResume        = "resume optimizer"
)

func upstream() error {
	return &llm.UpstreamError{Provider: llm.ProviderAnthropic, StatusCode: 500, Message: "boom"}
}

func newRequest(tools ...types.ToolName) types.GenerationRequest {
	return types.GenerationRequest{
		JobDescription: "Backend engineer, Go and Postgres",
		Resume:         "Built Go services",
		Tools:          tools,
	}
}

func newTestOrchestrator(client llm.Client, opts ...Option) *Orchestrator {
	logger, _ := test.NewNullLogger()
	return New(client, append([]Option{WithLogger(logger)}, opts...)...)
}

func TestGenerate_AllSucceed(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client)

	outcome, err := o.Generate(context.Background(), newRequest(types.AllTools...))
	require.NoError(t, err)

	assert.Len(t, outcome.Outputs, len(types.AllTools))
	assert.Nil(t, outcome.Errors)
	assert.Len(t, client.calls, len(types.AllTools))
}

func TestGenerate_PartialFailureIsIsolated(t *testing.T) {
	client := &fakeClient{fail: map[string]error{markerCoverLetter: upstream()}}
	o := newTestOrchestrator(client)

	outcome, err := o.Generate(context.Background(), newRequest(types.ToolResume, types.ToolCoverLetter, types.ToolInterviewPrep))
	require.NoError(t, err)

	assert.Equal(t, types.Outputs{
		types.ToolResume:        "generated",
		types.ToolInterviewPrep: "generated",
	}, outcome.Outputs)
	assert.Equal(t, map[types.ToolName]string{
		types.ToolCoverLetter: "Failed to generate cover letter",
	}, outcome.Errors)
	assert.Len(t, client.calls, 3, "every tool is attempted")
}

func TestGenerate_PartitionCoversRequestedTools(t *testing.T) {
	failures := []map[string]error{
		{},
		{markerResume: upstream()},
		{markerJobAnalyzer: upstream(), markerLinkedIn: upstream()},
		{markerResume: upstream(), markerCoverLetter: upstream(), markerInterviewPrep: upstream(), markerLinkedIn: upstream(), markerJobAnalyzer: upstream()},
	}

	for _, fail := range failures {
		o := newTestOrchestrator(&fakeClient{fail: fail})
		outcome, err := o.Generate(context.Background(), newRequest(types.AllTools...))
		require.NoError(t, err)

		for _, tool := range types.AllTools {
			_, inOutputs := outcome.Outputs[tool]
			_, inErrors := outcome.Errors[tool]
			assert.True(t, inOutputs != inErrors, "tool %s must be in exactly one of outputs/errors", tool)
		}
		assert.Equal(t, len(types.AllTools), len(outcome.Outputs)+len(outcome.Errors))
		assert.Equal(t, len(fail) == 0, outcome.Errors == nil)
	}
}

func TestGenerate_AllFail(t *testing.T) {
	client := &fakeClient{fail: map[string]error{"": upstream()}}
	o := newTestOrchestrator(client)

	outcome, err := o.Generate(context.Background(), newRequest(types.ToolJobAnalyzer, types.ToolLinkedIn))
	require.NoError(t, err)
	assert.Empty(t, outcome.Outputs)
	assert.Equal(t, map[types.ToolName]string{
		types.ToolJobAnalyzer: "Failed to analyze job description",
		types.ToolLinkedIn:    "Failed to optimize LinkedIn profile",
	}, outcome.Errors)
}

func TestGenerate_OnlyRequestedToolsRun(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client)

	outcome, err := o.Generate(context.Background(), newRequest(types.ToolJobAnalyzer))
	require.NoError(t, err)
	assert.Equal(t, []types.ToolName{types.ToolJobAnalyzer}, outcome.Tools())
	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0], markerJobAnalyzer)
}

func TestGenerate_SequentialOrderAndBudgets(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client)

	_, err := o.Generate(context.Background(), newRequest(types.ToolInterviewPrep, types.ToolResume, types.ToolInterviewPrep))
	require.NoError(t, err)

	require.Len(t, client.calls, 2, "duplicate tools run once")
	assert.Contains(t, client.calls[0], markerInterviewPrep)
	assert.Contains(t, client.calls[1], markerResume)
	assert.Equal(t, []int{InterviewPrepMaxTokens, DefaultMaxTokens}, client.budgets)
}

func TestGenerate_InvalidInput(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client)

	tests := []struct {
		name string
		req  types.GenerationRequest
	}{
		{name: "blank job description", req: types.GenerationRequest{JobDescription: "  ", Resume: "cv", Tools: []types.ToolName{types.ToolResume}}},
		{name: "blank resume", req: types.GenerationRequest{JobDescription: "jd", Resume: "\n", Tools: []types.ToolName{types.ToolResume}}},
		{name: "no tools", req: types.GenerationRequest{JobDescription: "jd", Resume: "cv"}},
		{name: "unknown tool", req: types.GenerationRequest{JobDescription: "jd", Resume: "cv", Tools: []types.ToolName{"tarot"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
	assert.Empty(t, client.calls, "no LLM call is made for invalid input")
}

func TestGenerate_ConfigurationErrorAbortsPackage(t *testing.T) {
	o := newTestOrchestrator(&llm.UnconfiguredClient{Provider: llm.ProviderAnthropic})

	_, err := o.Generate(context.Background(), newRequest(types.ToolResume, types.ToolCoverLetter))
	var cfgErr *llm.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGenerate_Concurrent(t *testing.T) {
	client := &fakeClient{fail: map[string]error{markerInterviewPrep: upstream()}}
	o := newTestOrchestrator(client, WithConcurrency(3))

	outcome, err := o.Generate(context.Background(), newRequest(types.AllTools...))
	require.NoError(t, err)

	assert.Len(t, outcome.Outputs, 4)
	assert.Equal(t, map[types.ToolName]string{
		types.ToolInterviewPrep: "Failed to generate interview prep",
	}, outcome.Errors)
	assert.Len(t, client.calls, len(types.AllTools))
}

func TestGenerate_ConcurrentConfigurationError(t *testing.T) {
	o := newTestOrchestrator(&llm.UnconfiguredClient{}, WithConcurrency(4))

	_, err := o.Generate(context.Background(), newRequest(types.AllTools...))
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestGenerate_ProgressStates(t *testing.T) {
	client := &fakeClient{fail: map[string]error{markerCoverLetter: upstream()}}

	var events []ProgressEvent
	o := newTestOrchestrator(client, WithProgress(func(e ProgressEvent) {
		events = append(events, e)
	}))

	_, err := o.Generate(context.Background(), newRequest(types.ToolResume, types.ToolCoverLetter))
	require.NoError(t, err)

	assert.Equal(t, []ProgressEvent{
		{Tool: types.ToolResume, State: StatePending},
		{Tool: types.ToolCoverLetter, State: StatePending},
		{Tool: types.ToolResume, State: StateGenerating},
		{Tool: types.ToolResume, State: StateSucceeded},
		{Tool: types.ToolCoverLetter, State: StateGenerating},
		{Tool: types.ToolCoverLetter, State: StateFailed, Message: "Failed to generate cover letter"},
	}, events)
}

func TestObserve_LeavesOriginalSilent(t *testing.T) {
	var base, observed int
	o := newTestOrchestrator(&fakeClient{}, WithProgress(func(ProgressEvent) { base++ }))

	_, err := o.Observe(func(ProgressEvent) { observed++ }).Generate(context.Background(), newRequest(types.ToolResume))
	require.NoError(t, err)

	assert.Equal(t, 3, observed)
	assert.Zero(t, base)
}

func TestComplete(t *testing.T) {
	client := &fakeClient{response: func(string) string { return "analysis" }}
	o := newTestOrchestrator(client)

	text, err := o.Complete(context.Background(), types.ToolInterviewPrep, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "analysis", text)
	assert.Equal(t, []int{InterviewPrepMaxTokens}, client.budgets)

	failing := newTestOrchestrator(&fakeClient{fail: map[string]error{"": upstream()}})
	_, err = failing.Complete(context.Background(), types.ToolResume, "prompt")
	assert.ErrorIs(t, err, llm.ErrUpstreamUnavailable)
}

func TestSpecFor(t *testing.T) {
	assert.Equal(t, ToolSpec{MaxTokens: 2500, FailureReason: "Failed to generate interview prep"}, SpecFor(types.ToolInterviewPrep))
	assert.Equal(t, 2000, SpecFor(types.ToolResume).MaxTokens)
	assert.Equal(t, "Failed to optimize resume", SpecFor(types.ToolResume).FailureReason)
}
