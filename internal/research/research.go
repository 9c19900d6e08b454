// Package research produces a structured brand profile from a target URL
// using search-grounded LLM generation.
package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/prompts"
	"github.com/marcus/brand-panel/internal/schemas"
	"github.com/marcus/brand-panel/internal/types"
)

// Input holds the inputs for the research stage. SeedCorpus is optional
// on-page brand copy extracted by the fetch package; when empty the model
// relies on search grounding alone.
type Input struct {
	TargetURL  string
	Market     string
	SeedCorpus string
}

// ResearchBrand researches the brand behind a URL and returns its profile.
// The response is schema-validated before it is trusted; an invalid response
// fails the stage.
func ResearchBrand(ctx context.Context, client llm.Client, input Input) (*types.BrandProfile, error) {
	prompt := buildResearchPrompt(input)

	responseText, err := client.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt:       prompt,
		Tier:         llm.TierAdvanced,
		EnableSearch: true,
	})
	if err != nil {
		return nil, &APICallError{
			Message: "failed to research brand",
			Cause:   err,
		}
	}

	responseText = llm.CleanJSONBlock(responseText)

	result, err := schemas.Validate(schemas.BrandProfileSchema, responseText)
	if err != nil {
		return nil, fmt.Errorf("loading brand profile schema: %w", err)
	}
	if !result.Valid() {
		return nil, &ValidationError{Reason: result.Reason()}
	}

	var profile types.BrandProfile
	if err := json.Unmarshal([]byte(responseText), &profile); err != nil {
		// Validation passed, so this only fires on shape drift between the
		// schema and the struct.
		return nil, fmt.Errorf("failed to decode brand profile: %w", err)
	}

	return &profile, nil
}

// buildResearchPrompt constructs the search-grounded research prompt.
func buildResearchPrompt(input Input) string {
	seedSection := ""
	if input.SeedCorpus != "" {
		seedSection = fmt.Sprintf("Copy extracted from the brand's own site:\n%s\n\n", input.SeedCorpus)
	}

	template := prompts.MustGet("research.json", "research-brand")
	return prompts.Format(template, map[string]string{
		"TargetURL":  input.TargetURL,
		"Market":     input.Market,
		"SeedCorpus": seedSection,
		"Schema":     schemas.MustSchemaJSON(schemas.BrandProfileSchema),
	})
}
