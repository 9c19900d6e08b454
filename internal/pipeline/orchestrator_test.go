package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/types"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateStructuredFunc func(ctx context.Context, req llm.StructuredRequest) (string, error)
	GenerateTextFunc       func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (string, error) {
	if m.GenerateStructuredFunc != nil {
		return m.GenerateStructuredFunc(ctx, req)
	}
	return "", errors.New("unexpected structured call")
}

func (m *MockLLMClient) GenerateText(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, prompt, tier)
	}
	return "", errors.New("unexpected text call")
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

const brandPayload = `{
	"name": "Acme",
	"category": "footwear",
	"tone": ["playful"],
	"target_audience": "Urban runners"
}`

const panelPayload = `[
	{"id": "p1", "name": "Maria", "age": 29, "occupation": "nurse", "bio": "A nurse.", "pain_points": ["time"]},
	{"id": "p2", "name": "Ben", "age": 41, "occupation": "teacher", "bio": "A teacher.", "pain_points": ["budget"]},
	{"id": "p3", "name": "Ines", "age": 34, "occupation": "designer", "bio": "A designer.", "pain_points": ["noise"]}
]`

const judgmentPayload = `{"score": 60, "quote": "Decent.", "pros": ["color"], "cons": [], "verdict": "like it"}`

// happyClient answers every stage with a valid fixed payload. Call kinds are
// distinguished the way the pipeline issues them: research is the only
// search-grounded call, and judgment calls are the only ones with attachments.
func happyClient() *MockLLMClient {
	return &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, req llm.StructuredRequest) (string, error) {
			switch {
			case req.EnableSearch:
				return brandPayload, nil
			case len(req.Attachments) > 0:
				return judgmentPayload, nil
			default:
				return panelPayload, nil
			}
		},
		GenerateTextFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "# Panel Report\n\nDecent showing overall.", nil
		},
	}
}

func validInputs() StartInputs {
	return StartInputs{
		TargetURL:    "https://acme.example",
		Market:       "US",
		PersonaCount: 3,
		Assets: []types.Asset{
			{ID: "img1", MIMEType: "image/png", Data: []byte{0x89, 0x50}},
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	var mu sync.Mutex
	var percents []float64
	o := New(happyClient(), Options{
		OnProgress: func(event ProgressEvent) {
			mu.Lock()
			percents = append(percents, event.Percent)
			mu.Unlock()
		},
	})

	err := o.Run(context.Background(), validInputs())
	require.NoError(t, err)

	state := o.Snapshot()
	assert.Equal(t, types.StageComplete, state.Stage)
	assert.Equal(t, 100.0, state.ProgressPercent)
	assert.NotEmpty(t, state.FinalReportText)
	require.NotNil(t, state.BrandProfile)
	assert.Equal(t, "Acme", state.BrandProfile.Name)

	// One judgment per persona, correlated by ID in panel order
	require.Len(t, state.Personas, 3)
	require.Len(t, state.Judgments, 3)
	for i := range state.Personas {
		assert.Equal(t, state.Personas[i].ID, state.Judgments[i].PersonaID)
	}

	// Progress is monotonic and passes through every stage boundary
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Contains(t, percents, 5.0)
	assert.Contains(t, percents, 30.0)
	assert.Contains(t, percents, 50.0)
	assert.Contains(t, percents, 85.0)
	assert.Contains(t, percents, 100.0)

	// The three judge completions land at 50 + 35/3 increments
	count := 0
	for _, p := range percents {
		if p > 50.0 && p < 85.0 {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, 2, "expected intermediate judge progress between 50 and 85")
}

func TestRun_JudgeProgressIncrements(t *testing.T) {
	var mu sync.Mutex
	var percents []float64
	o := New(happyClient(), Options{
		OnProgress: func(event ProgressEvent) {
			if event.Stage == types.StageJudging {
				mu.Lock()
				percents = append(percents, event.Percent)
				mu.Unlock()
			}
		},
	})

	require.NoError(t, o.Run(context.Background(), validInputs()))

	mu.Lock()
	defer mu.Unlock()
	// Entry at 50, then three completions of ~11.67 each, then 85
	assert.InDelta(t, 50.0, percents[0], 0.01)
	assert.InDelta(t, 61.67, percents[1], 0.05)
	assert.InDelta(t, 73.33, percents[2], 0.05)
	assert.InDelta(t, 85.0, percents[3], 0.01)
}

func TestRun_ResearchFailureStopsBeforeRecruit(t *testing.T) {
	recruitCalls := 0
	var mu sync.Mutex
	client := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, req llm.StructuredRequest) (string, error) {
			if req.EnableSearch {
				// missing required name field
				return `{"category": "footwear", "tone": ["playful"], "target_audience": "Runners"}`, nil
			}
			mu.Lock()
			recruitCalls++
			mu.Unlock()
			return panelPayload, nil
		},
	}

	o := New(client, Options{})
	err := o.Run(context.Background(), validInputs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research stage failed")

	state := o.Snapshot()
	assert.Equal(t, types.StageFailed, state.Stage)
	assert.Nil(t, state.BrandProfile)
	assert.Empty(t, state.Personas)
	assert.NotEmpty(t, state.Errors)
	assert.Equal(t, 0, recruitCalls, "recruit stage must never be invoked after research fails")
}

func TestRun_JudgeFailureDiscardsPartialResults(t *testing.T) {
	client := happyClient()
	client.GenerateStructuredFunc = func(_ context.Context, req llm.StructuredRequest) (string, error) {
		switch {
		case req.EnableSearch:
			return brandPayload, nil
		case len(req.Attachments) > 0:
			if strings.Contains(req.Prompt, "Ben") {
				return "", errors.New("rate limited")
			}
			return judgmentPayload, nil
		default:
			return panelPayload, nil
		}
	}

	o := New(client, Options{})
	err := o.Run(context.Background(), validInputs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge stage failed")

	state := o.Snapshot()
	assert.Equal(t, types.StageFailed, state.Stage)
	assert.Empty(t, state.Judgments, "no partial judgment set may be committed")
	assert.Len(t, state.Personas, 3, "personas committed before the failure remain")
	assert.Empty(t, state.FinalReportText)
}

func TestRun_InputValidation(t *testing.T) {
	o := New(happyClient(), Options{})

	cases := []struct {
		name   string
		mutate func(*StartInputs)
	}{
		{"missing url", func(in *StartInputs) { in.TargetURL = "" }},
		{"not a url", func(in *StartInputs) { in.TargetURL = "acme" }},
		{"missing market", func(in *StartInputs) { in.Market = "" }},
		{"zero personas", func(in *StartInputs) { in.PersonaCount = 0 }},
		{"too many personas", func(in *StartInputs) { in.PersonaCount = 6 }},
		{"no assets", func(in *StartInputs) { in.Assets = nil }},
		{"asset without data", func(in *StartInputs) { in.Assets = []types.Asset{{ID: "x", MIMEType: "image/png"}} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inputs := validInputs()
			tc.mutate(&inputs)

			err := o.Run(context.Background(), inputs)
			require.Error(t, err)

			var inputErr *InputError
			assert.ErrorAs(t, err, &inputErr, "must be rejected before entering the state machine")
			assert.Equal(t, types.StageIdle, o.Snapshot().Stage)
		})
	}
}

func TestReset_RestoresInitialState(t *testing.T) {
	o := New(happyClient(), Options{})
	require.NoError(t, o.Run(context.Background(), validInputs()))
	require.Equal(t, types.StageComplete, o.Snapshot().Stage)

	o.Reset()

	state := o.Snapshot()
	assert.Equal(t, types.StageIdle, state.Stage)
	assert.Equal(t, 0.0, state.ProgressPercent)
	assert.Empty(t, state.LogEntries)
	assert.Nil(t, state.BrandProfile)
	assert.Empty(t, state.Personas)
	assert.Empty(t, state.Judgments)
	assert.Empty(t, state.FinalReportText)
	assert.Empty(t, state.Errors)
}

func TestRestart_RequiresConfirmation(t *testing.T) {
	o := New(happyClient(), Options{})
	require.NoError(t, o.Run(context.Background(), validInputs()))

	err := o.Run(context.Background(), validInputs())
	assert.ErrorIs(t, err, ErrRestartNotConfirmed)

	inputs := validInputs()
	inputs.ConfirmRestart = true
	require.NoError(t, o.Run(context.Background(), inputs))
	assert.Equal(t, types.StageComplete, o.Snapshot().Stage)
}

func TestRun_AfterFailureRequiresReset(t *testing.T) {
	client := happyClient()
	failing := true
	client.GenerateTextFunc = func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
		if failing {
			return "", errors.New("service unavailable")
		}
		return "# Report", nil
	}

	o := New(client, Options{})
	require.Error(t, o.Run(context.Background(), validInputs()))
	require.Equal(t, types.StageFailed, o.Snapshot().Stage)

	err := o.Run(context.Background(), validInputs())
	assert.ErrorIs(t, err, ErrRunFailed)

	o.Reset()
	failing = false
	require.NoError(t, o.Run(context.Background(), validInputs()))
	assert.Equal(t, types.StageComplete, o.Snapshot().Stage)
}

func TestStart_RunsAsynchronously(t *testing.T) {
	release := make(chan struct{})
	client := happyClient()
	inner := client.GenerateStructuredFunc
	client.GenerateStructuredFunc = func(ctx context.Context, req llm.StructuredRequest) (string, error) {
		if req.EnableSearch {
			<-release
		}
		return inner(ctx, req)
	}

	o := New(client, Options{})
	require.NoError(t, o.Start(context.Background(), validInputs()))

	// A second start while the first run is blocked must be refused
	err := o.Start(context.Background(), validInputs())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.Eventually(t, func() bool {
		return o.Snapshot().Stage == types.StageComplete
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, o.Snapshot().FinalReportText)
}

func TestProgress_ZeroOnlyBeforeRun(t *testing.T) {
	o := New(happyClient(), Options{})
	assert.Equal(t, 0.0, o.Snapshot().ProgressPercent)

	require.NoError(t, o.Run(context.Background(), validInputs()))
	assert.Equal(t, 100.0, o.Snapshot().ProgressPercent)
}
