// Package metrics computes summary statistics over completed judgments.
// Aggregation is pure: no external calls, no mutation of its input.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/marcus/brand-panel/internal/types"
)

// TopEmotionLimit is the number of most-frequent emotional tags reported.
const TopEmotionLimit = 6

// EmotionCount is one emotional tag and how many judgments mentioned it.
// Tag carries the first-seen spelling (trimmed) for display.
type EmotionCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Summary holds the aggregate metrics for a judgment set.
type Summary struct {
	JudgmentCount          int            `json:"judgment_count"`
	MeanScore              int            `json:"mean_score"`
	MeanEmotionalIntensity float64        `json:"mean_emotional_intensity"`
	MeanShareLikelihood    int            `json:"mean_share_likelihood"`
	TopEmotions            []EmotionCount `json:"top_emotions"`
}

// HasData reports whether any judgments contributed to the summary.
// Callers must check this before treating the means as meaningful.
func (s Summary) HasData() bool {
	return s.JudgmentCount > 0
}

// String renders the summary as a short human-readable block, used in logs
// and as synthesis-prompt input.
func (s Summary) String() string {
	if !s.HasData() {
		return "no judgments recorded"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "judgments: %d\n", s.JudgmentCount)
	fmt.Fprintf(&sb, "mean score: %d/100\n", s.MeanScore)
	fmt.Fprintf(&sb, "mean emotional intensity: %.1f/10\n", s.MeanEmotionalIntensity)
	fmt.Fprintf(&sb, "mean share likelihood: %d/100\n", s.MeanShareLikelihood)
	if len(s.TopEmotions) > 0 {
		tags := make([]string, 0, len(s.TopEmotions))
		for _, e := range s.TopEmotions {
			tags = append(tags, fmt.Sprintf("%s (%d)", e.Tag, e.Count))
		}
		fmt.Fprintf(&sb, "top emotions: %s", strings.Join(tags, ", "))
	}
	return sb.String()
}

// Aggregate computes summary statistics over a judgment set.
// An empty input yields a zero Summary with HasData() == false; no division
// happens so the result is never NaN. Missing optional fields count as 0.
func Aggregate(judgments []types.Judgment) Summary {
	if len(judgments) == 0 {
		return Summary{}
	}

	var scoreSum, shareSum int
	var intensitySum float64
	for _, j := range judgments {
		scoreSum += j.Score
		shareSum += j.ShareLikelihood
		intensitySum += j.EmotionalIntensity
	}

	n := len(judgments)
	return Summary{
		JudgmentCount:          n,
		MeanScore:              roundToInt(float64(scoreSum) / float64(n)),
		MeanEmotionalIntensity: roundToPlaces(intensitySum/float64(n), 1),
		MeanShareLikelihood:    roundToInt(float64(shareSum) / float64(n)),
		TopEmotions:            topEmotions(judgments, TopEmotionLimit),
	}
}

// topEmotions counts emotional tags case-insensitively after trimming
// whitespace, and returns the limit most frequent. Ties break by first-seen
// order; the reported spelling is the first-seen trimmed form.
func topEmotions(judgments []types.Judgment, limit int) []EmotionCount {
	counts := make(map[string]int)
	display := make(map[string]string)
	firstSeen := make(map[string]int)
	order := 0

	for _, j := range judgments {
		for _, tag := range j.EmotionalTags {
			trimmed := strings.TrimSpace(tag)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, seen := counts[key]; !seen {
				display[key] = trimmed
				firstSeen[key] = order
				order++
			}
			counts[key]++
		}
	}

	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if counts[keys[a]] != counts[keys[b]] {
			return counts[keys[a]] > counts[keys[b]]
		}
		return firstSeen[keys[a]] < firstSeen[keys[b]]
	})

	if len(keys) > limit {
		keys = keys[:limit]
	}

	top := make([]EmotionCount, 0, len(keys))
	for _, key := range keys {
		top = append(top, EmotionCount{Tag: display[key], Count: counts[key]})
	}
	return top
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}

func roundToPlaces(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
