// Package pipeline provides the high-level orchestration for the brand panel
// workflow: research the brand, recruit a persona panel, fan the creative
// assets out to every persona for judgment, aggregate the results, and
// synthesize the final report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/marcus/brand-panel/internal/judging"
	"github.com/marcus/brand-panel/internal/llm"
	"github.com/marcus/brand-panel/internal/metrics"
	"github.com/marcus/brand-panel/internal/personas"
	"github.com/marcus/brand-panel/internal/research"
	"github.com/marcus/brand-panel/internal/store"
	"github.com/marcus/brand-panel/internal/synthesis"
	"github.com/marcus/brand-panel/internal/types"
)

// Stage progress budgets. Each stage owns a fixed slice of the bar; the
// judging slice is spent additively per completed persona.
const (
	percentResearchEntry = 5
	percentResearchExit  = 30
	percentRecruitExit   = 50
	percentJudgeExit     = 85
	percentComplete      = 100

	judgeBudget = percentJudgeExit - percentRecruitExit
)

// Orchestrator start errors.
var (
	ErrRunInProgress       = errors.New("a run is already in progress")
	ErrRestartNotConfirmed = errors.New("run is complete; restarting requires ConfirmRestart")
	ErrRunFailed           = errors.New("previous run failed; call Reset before starting again")
)

// InputError rejects a start request before the state machine is entered.
type InputError struct {
	Cause error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid inputs: %v", e.Cause)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// ProgressEvent is one progress update emitted during a run.
type ProgressEvent struct {
	Stage   types.Stage `json:"stage"`
	Percent float64     `json:"percent"`
	Message string      `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs.
type ProgressCallback func(event ProgressEvent)

// Options holds configuration for the orchestrator.
type Options struct {
	// Store persists per-run artifacts when non-nil; runs behave identically
	// without it.
	Store *store.Store
	// MaxConcurrency bounds in-flight judgment calls; 0 means unbounded.
	MaxConcurrency int
	Verbose        bool
	OnProgress     ProgressCallback
}

// StartInputs are the caller-provided inputs for a run.
type StartInputs struct {
	TargetURL    string        `validate:"required,url"`
	Market       string        `validate:"required"`
	PersonaCount int           `validate:"required,min=1,max=5"`
	Assets       []types.Asset `validate:"required,min=1"`
	// SeedCorpus is optional on-page brand copy used to enrich the research
	// prompt.
	SeedCorpus string
	// ConfirmRestart must be set to start again from the Complete state.
	ConfirmRestart bool
}

var validate = validator.New()

// Orchestrator owns the pipeline state machine. All state mutation happens
// on the orchestrator's goroutine; concurrent judgment completions reach it
// through the judging collector, never by writing shared state directly.
type Orchestrator struct {
	client llm.Client
	opts   Options

	mu      sync.Mutex
	running bool
	state   types.PipelineState
	log     *ProgressLog
}

// New creates an orchestrator in the Idle state.
func New(client llm.Client, opts Options) *Orchestrator {
	return &Orchestrator{
		client: client,
		opts:   opts,
		state:  types.PipelineState{Stage: types.StageIdle},
		log:    &ProgressLog{},
	}
}

// Start validates inputs synchronously, then runs the pipeline on its own
// goroutine. Progress is observed through Snapshot, the ProgressLog, and the
// OnProgress callback. Start may be invoked from Idle, or from Complete with
// ConfirmRestart set (which begins a fresh run with a clean state).
func (o *Orchestrator) Start(ctx context.Context, inputs StartInputs) error {
	if err := o.begin(inputs); err != nil {
		return err
	}
	go func() {
		_ = o.run(ctx, inputs)
	}()
	return nil
}

// Run executes the pipeline synchronously under the same admission rules as
// Start, returning the run's terminal error if any.
func (o *Orchestrator) Run(ctx context.Context, inputs StartInputs) error {
	if err := o.begin(inputs); err != nil {
		return err
	}
	return o.run(ctx, inputs)
}

// Reset returns the orchestrator to the initial Idle state, discarding all
// run data and clearing the progress log. Reset during a run is ignored;
// abandoning a run means discarding the orchestrator instance.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.state = types.PipelineState{Stage: types.StageIdle}
	o.log.Clear()
}

// Snapshot returns a copy of the current pipeline state. The copy is safe to
// read while a run is in flight.
func (o *Orchestrator) Snapshot() types.PipelineState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Log exposes the run's progress log for polling or subscription.
func (o *Orchestrator) Log() *ProgressLog {
	return o.log
}

func (o *Orchestrator) snapshotLocked() types.PipelineState {
	snap := o.state
	snap.ProgressPercent = o.log.Percent()
	snap.LogEntries = o.log.Entries()
	snap.Personas = append([]types.Persona(nil), o.state.Personas...)
	snap.Judgments = append([]types.Judgment(nil), o.state.Judgments...)
	snap.Errors = append([]string(nil), o.state.Errors...)
	return snap
}

// begin enforces the admission rules and claims the run slot.
func (o *Orchestrator) begin(inputs StartInputs) error {
	if err := validate.Struct(inputs); err != nil {
		return &InputError{Cause: err}
	}
	for i, asset := range inputs.Assets {
		if len(asset.Data) == 0 || asset.MIMEType == "" {
			return &InputError{Cause: fmt.Errorf("asset %d is missing data or mime type", i)}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return ErrRunInProgress
	}
	switch o.state.Stage {
	case types.StageIdle:
	case types.StageComplete:
		if !inputs.ConfirmRestart {
			return ErrRestartNotConfirmed
		}
	case types.StageFailed:
		return ErrRunFailed
	default:
		return ErrRunInProgress
	}

	o.running = true
	o.state = types.PipelineState{Stage: types.StageIdle}
	o.log.Clear()
	return nil
}

// run drives the stages in order. Any stage error aborts the run to Failed;
// there are no retries and no rollback.
func (o *Orchestrator) run(ctx context.Context, inputs StartInputs) error {
	var runID uuid.UUID
	if o.opts.Store != nil {
		id, err := o.opts.Store.CreateRun(ctx, inputs.TargetURL, inputs.Market, inputs.PersonaCount)
		if err != nil {
			o.log.Append("warning: failed to record run in store: %v", err)
		} else {
			runID = id
		}
	}

	// Stage 1: Research
	o.transition(types.StageResearching, percentResearchEntry,
		fmt.Sprintf("Researching brand at %s...", inputs.TargetURL))
	brand, err := research.ResearchBrand(ctx, o.client, research.Input{
		TargetURL:  inputs.TargetURL,
		Market:     inputs.Market,
		SeedCorpus: inputs.SeedCorpus,
	})
	if err != nil {
		return o.fail(ctx, runID, fmt.Errorf("research stage failed: %w", err))
	}
	o.commit(func(s *types.PipelineState) { s.BrandProfile = brand })
	o.saveArtifact(ctx, runID, store.StepBrandProfile, brand)
	o.progress(percentResearchExit, fmt.Sprintf("Brand research complete: %s (%s)", brand.Name, brand.Category))

	// Stage 2: Recruit Personas
	o.transition(types.StageRecruiting, percentResearchExit,
		fmt.Sprintf("Recruiting %d personas for market %s...", inputs.PersonaCount, inputs.Market))
	panel, err := personas.RecruitPanel(ctx, o.client, brand, inputs.PersonaCount, inputs.Market)
	if err != nil {
		return o.fail(ctx, runID, fmt.Errorf("recruit stage failed: %w", err))
	}
	o.commit(func(s *types.PipelineState) { s.Personas = panel })
	o.saveArtifact(ctx, runID, store.StepPersonas, panel)
	o.progress(percentRecruitExit, fmt.Sprintf("Recruited %d personas", len(panel)))

	// Stage 3: Judge (concurrent fan-out over the panel)
	o.transition(types.StageJudging, percentRecruitExit,
		fmt.Sprintf("Panel of %d judging %d assets...", len(panel), len(inputs.Assets)))
	completed := 0
	total := len(panel)
	judgments, err := judging.JudgePanel(ctx, o.client, judging.Input{
		Brand:          brand,
		Personas:       panel,
		Assets:         inputs.Assets,
		MaxConcurrency: o.opts.MaxConcurrency,
		OnJudged: func(persona types.Persona, judgment types.Judgment) {
			// Single collector goroutine: increments are serialized here,
			// so no update is lost across concurrent completions.
			completed++
			percent := percentRecruitExit + float64(judgeBudget)*float64(completed)/float64(total)
			o.progress(percent, fmt.Sprintf("%s scored the assets %d/100", persona.Name, judgment.Score))
		},
	})
	if err != nil {
		// All-or-nothing: no partial judgment set is ever committed
		return o.fail(ctx, runID, fmt.Errorf("judge stage failed: %w", err))
	}
	o.commit(func(s *types.PipelineState) { s.Judgments = judgments })
	o.saveArtifact(ctx, runID, store.StepJudgments, judgments)

	// Aggregate metrics feed both the log and the synthesis prompt
	summary := metrics.Aggregate(judgments)
	o.saveArtifact(ctx, runID, store.StepMetrics, summary)
	o.progress(percentJudgeExit, fmt.Sprintf("Judging complete: mean score %d/100", summary.MeanScore))

	// Stage 4: Synthesize
	o.transition(types.StageSynthesizing, percentJudgeExit, "Synthesizing final report...")
	report, err := synthesis.SynthesizeReport(ctx, o.client, brand, panel, judgments, summary)
	if err != nil {
		return o.fail(ctx, runID, fmt.Errorf("synthesize stage failed: %w", err))
	}
	o.commit(func(s *types.PipelineState) { s.FinalReportText = report })
	if o.opts.Store != nil && runID != uuid.Nil {
		if err := o.opts.Store.SaveTextArtifact(ctx, runID, store.StepReport, report); err != nil {
			o.log.Append("warning: failed to save report artifact: %v", err)
		}
		_ = o.opts.Store.CompleteRun(ctx, runID, "completed")
	}

	o.transition(types.StageComplete, percentComplete, "Run complete")
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	return nil
}

// fail moves the run to the terminal Failed state with a diagnostic log line.
// Forward progress from the failed stage is never committed, so the state
// holds only what earlier stages completed.
func (o *Orchestrator) fail(ctx context.Context, runID uuid.UUID, err error) error {
	o.mu.Lock()
	o.state.Stage = types.StageFailed
	o.state.Errors = append(o.state.Errors, err.Error())
	o.running = false
	o.mu.Unlock()

	o.log.Append("run failed: %v", err)
	o.emit(types.StageFailed, o.log.Percent(), err.Error())

	if o.opts.Store != nil && runID != uuid.Nil {
		_ = o.opts.Store.CompleteRun(ctx, runID, "failed")
	}
	return err
}

// transition moves to a new stage, raises progress to the stage's entry
// percentage, and logs the transition.
func (o *Orchestrator) transition(stage types.Stage, percent float64, message string) {
	o.mu.Lock()
	o.state.Stage = stage
	o.mu.Unlock()
	o.progress(percent, message)
}

// progress raises the percentage and appends a log line within the current
// stage.
func (o *Orchestrator) progress(percent float64, message string) {
	o.log.SetPercent(percent)
	o.log.Append("%s", message)
	if o.opts.Verbose {
		fmt.Printf("[%3.0f%%] %s\n", o.log.Percent(), message)
	}
	o.mu.Lock()
	stage := o.state.Stage
	o.mu.Unlock()
	o.emit(stage, o.log.Percent(), message)
}

func (o *Orchestrator) emit(stage types.Stage, percent float64, message string) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(ProgressEvent{Stage: stage, Percent: percent, Message: message})
	}
}

// commit applies a mutation to the pipeline state under the lock.
func (o *Orchestrator) commit(mutate func(s *types.PipelineState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mutate(&o.state)
}

// saveArtifact persists a stage output when a store is configured. Failures
// are logged and otherwise ignored; persistence never affects the run.
func (o *Orchestrator) saveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) {
	if o.opts.Store == nil || runID == uuid.Nil {
		return
	}
	if err := o.opts.Store.SaveArtifact(ctx, runID, step, content); err != nil {
		o.log.Append("warning: failed to save %s artifact: %v", step, err)
	}
}
