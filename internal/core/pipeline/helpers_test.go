package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

type fakeInvoker struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, modelID string, tier ports.ModelTier, prompt string) (string, error)
	calls []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, modelID string, tier ports.ModelTier, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	if f.fn == nil {
		return "", nil
	}
	return f.fn(ctx, modelID, tier, prompt)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// heuristicDeps has no model wired: every step falls back to its
// deterministic path.
func heuristicDeps() *Deps {
	d := &Deps{Logger: discardLogger()}
	d.normalize()
	return d
}

func modelDeps(t *testing.T, inv ports.ModelInvoker) *Deps {
	t.Helper()
	router, err := NewRouter(RouterConfig{FastModelID: "fast-model", AccurateModelID: "accurate-model"})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	d := &Deps{Router: router, Invoker: inv, Logger: discardLogger()}
	d.normalize()
	return d
}

type recordingSink struct {
	mu        sync.Mutex
	events    []domain.ProgressEvent
	completes []domain.PipelineComplete
}

func (r *recordingSink) Emit(_ string, ev domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) Complete(_ string, ev domain.PipelineComplete) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completes = append(r.completes, ev)
}

func (r *recordingSink) visitedSteps() []domain.StepName {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StepName
	for _, ev := range r.events {
		if ev.Status == domain.StepStarted {
			out = append(out, ev.Step)
		}
	}
	return out
}

func (r *recordingSink) summaryFor(step domain.StepName) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Step == step && ev.Status == domain.StepCompleted {
			return ev.Summary
		}
	}
	return ""
}
