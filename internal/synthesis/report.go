// Package synthesis turns the completed judgment set into the final
// structured-markdown report.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/metrics"
	"github.com/marcus/brand-panel/internal/prompts"
	"github.com/marcus/brand-panel/internal/types"
)

// attributedJudgment pairs a judgment with the panelist identity fields the
// report needs. Identity is resolved by persona ID lookup, never by position.
type attributedJudgment struct {
	PersonaName string `json:"persona_name"`
	Age         int    `json:"age"`
	Location    string `json:"location,omitempty"`
	Occupation  string `json:"occupation"`
	types.Judgment
}

// SynthesizeReport produces the final free-text report from the brand
// profile, the panel, their judgments, and the aggregate metrics. There is no
// fallback report: a service failure or an empty response fails the stage.
func SynthesizeReport(ctx context.Context, client llm.Client, brand *types.BrandProfile, panel []types.Persona, judgments []types.Judgment, summary metrics.Summary) (string, error) {
	prompt, err := buildReportPrompt(brand, panel, judgments, summary)
	if err != nil {
		return "", err
	}

	report, err := client.GenerateText(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return "", &APICallError{
			Message: "failed to synthesize report",
			Cause:   err,
		}
	}
	if report == "" {
		return "", &APICallError{Message: "reasoning service returned an empty report"}
	}

	return report, nil
}

// buildReportPrompt constructs the synthesis prompt with judgments enriched
// by panelist identity.
func buildReportPrompt(brand *types.BrandProfile, panel []types.Persona, judgments []types.Judgment, summary metrics.Summary) (string, error) {
	byID := make(map[string]types.Persona, len(panel))
	for _, p := range panel {
		byID[p.ID] = p
	}

	attributed := make([]attributedJudgment, 0, len(judgments))
	for _, j := range judgments {
		persona, ok := byID[j.PersonaID]
		if !ok {
			return "", fmt.Errorf("judgment references unknown persona %s", j.PersonaID)
		}
		attributed = append(attributed, attributedJudgment{
			PersonaName: persona.Name,
			Age:         persona.Age,
			Location:    persona.Location,
			Occupation:  persona.Occupation,
			Judgment:    j,
		})
	}

	brandJSON, err := json.MarshalIndent(brand, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal brand profile: %w", err)
	}
	judgmentsJSON, err := json.MarshalIndent(attributed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal judgments: %w", err)
	}

	template := prompts.MustGet("synthesis.json", "synthesize-report")
	return prompts.Format(template, map[string]string{
		"BrandProfile": string(brandJSON),
		"Metrics":      summary.String(),
		"Judgments":    string(judgmentsJSON),
	}), nil
}
