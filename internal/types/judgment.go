package types

// TimecodedReaction is a persona reaction anchored to a point in a video asset.
type TimecodedReaction struct {
	Time     string `json:"time"`
	Reaction string `json:"reaction"`
}

// Judgment is one persona's verdict on the full asset set. Exactly one
// Judgment exists per persona and it is never mutated after creation.
// Persona identity is resolved from PersonaID via lookup; Judgment
// deliberately carries no positional information.
type Judgment struct {
	PersonaID          string              `json:"persona_id"`
	Score              int                 `json:"score"`
	Quote              string              `json:"quote"`
	Pros               []string            `json:"pros"`
	Cons               []string            `json:"cons"`
	Verdict            string              `json:"verdict"`
	EmotionalTags      []string            `json:"emotional_tags,omitempty"`
	EmotionalIntensity float64             `json:"emotional_intensity,omitempty"`
	ShareLikelihood    int                 `json:"share_likelihood,omitempty"`
	TrustPerception    string              `json:"trust_perception,omitempty"`
	TimecodedReactions []TimecodedReaction `json:"timecoded_reactions,omitempty"`
}
