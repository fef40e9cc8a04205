package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// noopSink discards progress events for runs nothing is watching.
type noopSink struct{}

func (noopSink) Emit(string, domain.ProgressEvent)        {}
func (noopSink) Complete(string, domain.PipelineComplete) {}

// Orchestrator walks a run through the step sequence, owning halt
// semantics, per-step timeouts, and progress emission. It implements
// ports.PipelineRunner.
type Orchestrator struct {
	cfg   Config
	deps  Deps
	sink  ports.ProgressSink
	steps map[domain.StepName]Step
}

// NewOrchestrator wires the step set from the shared dependencies. A nil
// sink is allowed; progress is then discarded.
func NewOrchestrator(cfg Config, deps Deps, sink ports.ProgressSink) *Orchestrator {
	cfg = cfg.normalize()
	deps.normalize()
	if sink == nil {
		sink = noopSink{}
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		sink: sink,
		steps: map[domain.StepName]Step{
			domain.StepGuardrail:        newGuardrailStep(&deps),
			domain.StepGatekeeper:       newGatekeeperStep(&deps),
			domain.StepExtractor:        newExtractorStep(&deps, cfg.RequiredFields),
			domain.StepLanguageDetector: newLanguageStep(&deps),
			domain.StepAnalyst:          newAnalystStep(&deps, cfg.Scoring),
			domain.StepCommunicator:     newCommunicatorStep(&deps),
			domain.StepStageSuggester:   newStageStep(&deps),
		},
	}
}

// stepsFor returns the step sequence for a mode. Follow-ups belong to an
// opportunity that already passed classification, so the gatekeeper is
// skipped.
func stepsFor(mode domain.Mode) []domain.StepName {
	if mode != domain.ModeFollowUp {
		return StepOrder
	}
	out := make([]domain.StepName, 0, len(StepOrder)-1)
	for _, name := range StepOrder {
		if name != domain.StepGatekeeper {
			out = append(out, name)
		}
	}
	return out
}

// Run executes the pipeline for one message. The returned result is a
// private copy owned by the caller. Run never returns a nil result
// together with a nil error.
func (o *Orchestrator) Run(ctx context.Context, req ports.RunRequest) (*domain.PipelineResult, error) {
	const op = "pipeline.Run"
	if req.RawText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("empty message"))
	}
	if len(req.RawText) > o.cfg.MaxInputLength {
		return nil, domain.WrapError(domain.ErrInvalidInput, op,
			fmt.Errorf("message length %d exceeds limit %d", len(req.RawText), o.cfg.MaxInputLength))
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeInitial
	}

	st := &domain.PipelineState{
		RawText:          req.RawText,
		Source:           req.Source,
		Mode:             mode,
		History:          req.History,
		CurrentStage:     req.CurrentStage,
		CandidateID:      req.CandidateID,
		Profile:          req.Profile,
		DetectedLanguage: req.DetectedLanguage,
	}

	start := time.Now()
	defer func() {
		res := st.Result()
		o.sink.Complete(req.RunID, domain.PipelineComplete{
			ResultDigest: res.Digest(),
			FinalStage:   res.SuggestedStage,
			EmittedAt:    time.Now().UTC(),
		})
		o.deps.Metrics.RunCompleted(mode, runOutcome(st))
		o.deps.Logger.Info("pipeline_run_finished",
			"run_id", req.RunID,
			"mode", string(mode),
			"halted", st.Halted,
			"halt_reason", string(st.HaltReason),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	for _, name := range stepsFor(mode) {
		if st.Halted {
			break
		}
		if err := ctx.Err(); err != nil {
			st.Halt(name, domain.HaltCanceled)
			break
		}
		o.runStep(ctx, req.RunID, name, st)
	}

	return st.Result(), nil
}

func (o *Orchestrator) runStep(ctx context.Context, runID string, name domain.StepName, st *domain.PipelineState) {
	o.sink.Emit(runID, domain.ProgressEvent{
		Step: name, Status: domain.StepStarted, EmittedAt: time.Now().UTC(),
	})

	if skip, summary := o.shouldSkip(name, st); skip {
		o.sink.Emit(runID, domain.ProgressEvent{
			Step: name, Status: domain.StepCompleted, Summary: summary, EmittedAt: time.Now().UTC(),
		})
		return
	}

	// Each step gets its own deadline, detached from the caller so an
	// in-flight step finishes its bounded work even when the request
	// context dies; cancellation is honored between steps.
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StepTimeout)
	start := time.Now()
	summary, err := o.steps[name].Run(stepCtx, st)
	cancel()
	o.deps.Metrics.StepDuration(name, time.Since(start).Seconds())

	if err != nil {
		reason := domain.HaltStepFailed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = domain.HaltStepTimeout
		}
		st.Halt(name, reason)
		summary = fmt.Sprintf("halted: %s", reason)
		o.deps.Logger.Error("pipeline_step_failed",
			"run_id", runID, "step", string(name), "reason", string(reason), "error", err)
	}

	o.sink.Emit(runID, domain.ProgressEvent{
		Step: name, Status: domain.StepCompleted, Summary: summary, EmittedAt: time.Now().UTC(),
	})
}

// shouldSkip marks steps that are visited but not executed: scoring and
// drafting need a complete extraction to say anything useful.
func (o *Orchestrator) shouldSkip(name domain.StepName, st *domain.PipelineState) (bool, string) {
	switch name {
	case domain.StepAnalyst, domain.StepCommunicator:
		if !st.Extracted.Complete() {
			return true, "skipped: missing_fields"
		}
	}
	return false, ""
}

func runOutcome(st *domain.PipelineState) string {
	if !st.Halted {
		return "completed"
	}
	return "halted_" + string(st.HaltReason)
}
