package types

// Stage identifies one phase of the pipeline state machine.
type Stage string

// Pipeline stages. Transitions are strictly forward; Failed is reachable
// from any non-terminal stage.
const (
	StageIdle         Stage = "idle"
	StageResearching  Stage = "researching"
	StageRecruiting   Stage = "recruiting_personas"
	StageJudging      Stage = "judging"
	StageSynthesizing Stage = "synthesizing"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
)

// Terminal reports whether the stage is an end state of a run.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// PipelineState is the full observable state of a run. It is owned by the
// orchestrator; callers receive copies via Snapshot and must treat them as
// read-only views.
type PipelineState struct {
	Stage           Stage         `json:"stage"`
	ProgressPercent float64       `json:"progress_percent"`
	LogEntries      []string      `json:"log_entries"`
	BrandProfile    *BrandProfile `json:"brand_profile,omitempty"`
	Personas        []Persona     `json:"personas,omitempty"`
	Judgments       []Judgment    `json:"judgments,omitempty"`
	FinalReportText string        `json:"final_report_text,omitempty"`
	Errors          []string      `json:"errors,omitempty"`
}
