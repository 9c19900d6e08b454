package personas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/types"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateStructuredFunc func(ctx context.Context, req llm.StructuredRequest) (string, error)
}

func (m *MockLLMClient) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (string, error) {
	if m.GenerateStructuredFunc != nil {
		return m.GenerateStructuredFunc(ctx, req)
	}
	return "[]", nil
}

func (m *MockLLMClient) GenerateText(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "", errors.New("unexpected text call")
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func testBrand() *types.BrandProfile {
	return &types.BrandProfile{
		Name:           "Acme",
		Category:       "footwear",
		Tone:           []string{"playful"},
		TargetAudience: "Urban runners",
	}
}

const twoPersonas = `[
	{"id": "p1", "name": "Maria", "age": 29, "occupation": "nurse", "bio": "A nurse.", "pain_points": ["time"]},
	{"id": "p2", "name": "Ben", "age": 41, "occupation": "teacher", "bio": "A teacher.", "pain_points": ["budget"]}
]`

func TestRecruitPanel_Success(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, req llm.StructuredRequest) (string, error) {
			assert.False(t, req.EnableSearch)
			assert.Contains(t, req.Prompt, "Acme")
			assert.Contains(t, req.Prompt, "DE")
			return twoPersonas, nil
		},
	}

	panel, err := RecruitPanel(context.Background(), mockClient, testBrand(), 2, "DE")
	require.NoError(t, err)
	require.Len(t, panel, 2)

	// Returned order is canonical
	assert.Equal(t, "p1", panel[0].ID)
	assert.Equal(t, "p2", panel[1].ID)
	assert.Equal(t, "Maria", panel[0].Name)
}

func TestRecruitPanel_CountOutOfRange(t *testing.T) {
	mockClient := &MockLLMClient{}

	_, err := RecruitPanel(context.Background(), mockClient, testBrand(), 0, "US")
	assert.Error(t, err)

	_, err = RecruitPanel(context.Background(), mockClient, testBrand(), 6, "US")
	assert.Error(t, err)
}

func TestRecruitPanel_WrongCountFails(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, _ llm.StructuredRequest) (string, error) {
			return twoPersonas, nil
		},
	}

	_, err := RecruitPanel(context.Background(), mockClient, testBrand(), 3, "US")
	require.Error(t, err)

	var countErr *CountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 3, countErr.Requested)
	assert.Equal(t, 2, countErr.Returned)
}

func TestRecruitPanel_InvalidElementFailsWholePanel(t *testing.T) {
	// Second element is missing pain_points; dropping it would shrink the
	// panel silently, so the whole stage must fail instead.
	mockClient := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, _ llm.StructuredRequest) (string, error) {
			return `[
				{"id": "p1", "name": "Maria", "age": 29, "occupation": "nurse", "bio": "A nurse.", "pain_points": ["time"]},
				{"id": "p2", "name": "Ben", "age": 41, "occupation": "teacher", "bio": "A teacher."}
			]`, nil
		},
	}

	_, err := RecruitPanel(context.Background(), mockClient, testBrand(), 2, "US")
	require.Error(t, err)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestRecruitPanel_DuplicateIDsFail(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, _ llm.StructuredRequest) (string, error) {
			return `[
				{"id": "p1", "name": "Maria", "age": 29, "occupation": "nurse", "bio": "A nurse.", "pain_points": ["time"]},
				{"id": "p1", "name": "Ben", "age": 41, "occupation": "teacher", "bio": "A teacher.", "pain_points": ["budget"]}
			]`, nil
		},
	}

	_, err := RecruitPanel(context.Background(), mockClient, testBrand(), 2, "US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate persona id")
}

func TestRecruitPanel_ServiceError(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, _ llm.StructuredRequest) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	_, err := RecruitPanel(context.Background(), mockClient, testBrand(), 2, "US")
	require.Error(t, err)

	var apiErr *APICallError
	assert.ErrorAs(t, err, &apiErr)
}

func TestRecruitPanel_MarkdownWrappedResponse(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateStructuredFunc: func(_ context.Context, _ llm.StructuredRequest) (string, error) {
			return "```json\n" + twoPersonas + "\n```", nil
		},
	}

	panel, err := RecruitPanel(context.Background(), mockClient, testBrand(), 2, "US")
	require.NoError(t, err)
	assert.Len(t, panel, 2)
}
