// Package judging runs the concurrent judgment round: every persona reviews
// the full asset set independently, and the results are joined back into
// canonical persona order.
package judging

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/prompts"
	"github.com/marcus/brand-panel/internal/schemas"
	"github.com/marcus/brand-panel/internal/types"
)

// Input holds everything the judgment round needs.
type Input struct {
	Brand    *types.BrandProfile
	Personas []types.Persona
	Assets   []types.Asset

	// MaxConcurrency bounds simultaneous in-flight calls; 0 means one call
	// per persona with no further bound.
	MaxConcurrency int

	// OnJudged is invoked once per completed judgment, in completion order,
	// from a single collector goroutine. Callers use it for progress
	// accounting; it must not block for long.
	OnJudged func(persona types.Persona, judgment types.Judgment)
}

// JudgePanel fans out one judgment call per persona and joins once all have
// settled. The round is all-or-nothing: if any call fails, every sibling
// result is discarded and the round reports a single failure. The returned
// slice is reassembled into the input persona order regardless of completion
// order, correlated by persona ID.
func JudgePanel(ctx context.Context, client llm.Client, input Input) ([]types.Judgment, error) {
	if len(input.Personas) == 0 {
		return nil, fmt.Errorf("no personas to judge")
	}
	if len(input.Assets) == 0 {
		return nil, fmt.Errorf("no assets to judge")
	}

	byID := make(map[string]types.Persona, len(input.Personas))
	for _, p := range input.Personas {
		byID[p.ID] = p
	}

	// Completions flow through a channel to a single collector; worker
	// goroutines never touch shared state directly.
	results := make(chan types.Judgment, len(input.Personas))
	collected := make(map[string]types.Judgment, len(input.Personas))
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for judgment := range results {
			collected[judgment.PersonaID] = judgment
			if input.OnJudged != nil {
				input.OnJudged(byID[judgment.PersonaID], judgment)
			}
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)
	if input.MaxConcurrency > 0 {
		g.SetLimit(input.MaxConcurrency)
	}

	for _, persona := range input.Personas {
		persona := persona
		g.Go(func() error {
			judgment, err := judgeOne(gCtx, client, input.Brand, persona, input.Assets)
			if err != nil {
				return err
			}
			results <- judgment
			return nil
		})
	}

	err := g.Wait()
	close(results)
	<-collectorDone

	if err != nil {
		// All-or-nothing: sibling successes in `collected` are dropped
		return nil, err
	}

	// Reassemble into canonical persona order via ID lookup
	judgments := make([]types.Judgment, 0, len(input.Personas))
	for _, persona := range input.Personas {
		judgment, ok := collected[persona.ID]
		if !ok {
			return nil, fmt.Errorf("missing judgment for persona %s", persona.ID)
		}
		judgments = append(judgments, judgment)
	}

	return judgments, nil
}

// judgeOne issues a single multimodal judgment call for one persona.
func judgeOne(ctx context.Context, client llm.Client, brand *types.BrandProfile, persona types.Persona, assets []types.Asset) (types.Judgment, error) {
	prompt, err := buildJudgePrompt(brand, persona, len(assets))
	if err != nil {
		return types.Judgment{}, err
	}

	attachments := make([]llm.Attachment, 0, len(assets))
	for _, asset := range assets {
		attachments = append(attachments, llm.Attachment{
			MIMEType: asset.MIMEType,
			Data:     asset.Data,
		})
	}

	responseText, err := client.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt:      prompt,
		Attachments: attachments,
		Tier:        llm.TierStandard,
	})
	if err != nil {
		return types.Judgment{}, &APICallError{
			PersonaID: persona.ID,
			Message:   "failed to generate judgment",
			Cause:     err,
		}
	}

	responseText = llm.CleanJSONBlock(responseText)

	result, err := schemas.Validate(schemas.JudgmentSchema, responseText)
	if err != nil {
		return types.Judgment{}, fmt.Errorf("loading judgment schema: %w", err)
	}
	if !result.Valid() {
		return types.Judgment{}, &ValidationError{
			PersonaID: persona.ID,
			Reason:    result.Reason(),
		}
	}

	var judgment types.Judgment
	if err := json.Unmarshal([]byte(responseText), &judgment); err != nil {
		return types.Judgment{}, fmt.Errorf("failed to decode judgment for persona %s: %w", persona.ID, err)
	}

	judgment.PersonaID = persona.ID
	return judgment, nil
}

// buildJudgePrompt constructs the persona-specific judgment prompt.
func buildJudgePrompt(brand *types.BrandProfile, persona types.Persona, assetCount int) (string, error) {
	personaJSON, err := json.MarshalIndent(persona, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal persona: %w", err)
	}
	brandJSON, err := json.MarshalIndent(brand, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal brand profile: %w", err)
	}

	template := prompts.MustGet("judging.json", "judge-assets")
	return prompts.Format(template, map[string]string{
		"Persona":      string(personaJSON),
		"BrandProfile": string(brandJSON),
		"AssetCount":   fmt.Sprintf("%d", assetCount),
		"Schema":       schemas.MustSchemaJSON(schemas.JudgmentSchema),
	}), nil
}
