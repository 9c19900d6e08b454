// Package personas synthesizes the audience panel for a run.
package personas

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/prompts"
	"github.com/marcus/brand-panel/internal/schemas"
	"github.com/marcus/brand-panel/internal/types"
)

// Panel size bounds enforced before the reasoning service is called.
const (
	MinPanelSize = 1
	MaxPanelSize = 5
)

// RecruitPanel asks the reasoning service for exactly count personas matching
// the brand's audience in the given market. The returned order is the
// canonical persona ordering for the remainder of the run.
func RecruitPanel(ctx context.Context, client llm.Client, brand *types.BrandProfile, count int, market string) ([]types.Persona, error) {
	if count < MinPanelSize || count > MaxPanelSize {
		return nil, fmt.Errorf("persona count %d out of range [%d,%d]", count, MinPanelSize, MaxPanelSize)
	}

	prompt, err := buildRecruitPrompt(brand, count, market)
	if err != nil {
		return nil, err
	}

	responseText, err := client.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt: prompt,
		Tier:   llm.TierStandard,
	})
	if err != nil {
		return nil, &APICallError{
			Message: "failed to recruit personas",
			Cause:   err,
		}
	}

	responseText = llm.CleanJSONBlock(responseText)

	// Any invalid element fails the whole panel. Dropping an invalid persona
	// would silently shrink the panel and break persona correlation.
	result, err := schemas.Validate(schemas.PersonasSchema, responseText)
	if err != nil {
		return nil, fmt.Errorf("loading persona schema: %w", err)
	}
	if !result.Valid() {
		return nil, &ValidationError{Reason: result.Reason()}
	}

	var panel []types.Persona
	if err := json.Unmarshal([]byte(responseText), &panel); err != nil {
		return nil, fmt.Errorf("failed to decode persona panel: %w", err)
	}

	if len(panel) != count {
		return nil, &CountError{Requested: count, Returned: len(panel)}
	}

	// IDs must be unique so judgments can be correlated back by lookup
	seen := make(map[string]bool, len(panel))
	for _, p := range panel {
		if seen[p.ID] {
			return nil, &ValidationError{Reason: fmt.Sprintf("duplicate persona id %q", p.ID)}
		}
		seen[p.ID] = true
	}

	return panel, nil
}

// buildRecruitPrompt constructs the panel recruitment prompt.
func buildRecruitPrompt(brand *types.BrandProfile, count int, market string) (string, error) {
	brandJSON, err := json.MarshalIndent(brand, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal brand profile: %w", err)
	}

	template := prompts.MustGet("personas.json", "recruit-panel")
	return prompts.Format(template, map[string]string{
		"Count":        strconv.Itoa(count),
		"Market":       market,
		"BrandProfile": string(brandJSON),
		"Schema":       schemas.MustSchemaJSON(schemas.PersonasSchema),
	}), nil
}
