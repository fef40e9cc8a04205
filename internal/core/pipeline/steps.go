package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// Step is one stage of the pipeline. Run mutates the state and returns a
// short human-readable summary for the progress stream.
type Step interface {
	Name() domain.StepName
	Run(ctx context.Context, st *domain.PipelineState) (string, error)
}

// Metrics is the observation hook the pipeline reports into. All methods
// must be cheap and non-blocking.
type Metrics interface {
	StepDuration(step domain.StepName, seconds float64)
	RunCompleted(mode domain.Mode, outcome string)
	ParseFallback(step domain.StepName, tier string)
}

type noopMetrics struct{}

func (noopMetrics) StepDuration(domain.StepName, float64) {}
func (noopMetrics) RunCompleted(domain.Mode, string)      {}
func (noopMetrics) ParseFallback(domain.StepName, string) {}

// ScoringWeights parameterizes the Analyst's deterministic baseline.
type ScoringWeights struct {
	Base              int `yaml:"base"`
	Skills            int `yaml:"skills"`
	WorkModelMatch    int `yaml:"work_model_match"`
	WorkModelMismatch int `yaml:"work_model_mismatch"`
	SalaryMeets       int `yaml:"salary_meets"`
	SalaryBelow       int `yaml:"salary_below"`
}

// Config carries the pipeline tunables. Zero values fall back to
// defaults via normalize.
type Config struct {
	StepTimeout    time.Duration     `yaml:"-"`
	MaxInputLength int               `yaml:"max_input_length"`
	RequiredFields []string          `yaml:"required_fields"`
	Scoring        ScoringWeights    `yaml:"scoring"`
	TierOverrides  map[string]string `yaml:"tier_overrides"`
}

// DefaultConfig mirrors the scoring and completeness policy of the
// original deployment.
func DefaultConfig() Config {
	return Config{
		StepTimeout:    30 * time.Second,
		MaxInputLength: 10000,
		RequiredFields: []string{"role_title", "salary_range", "tech_stack"},
		Scoring: ScoringWeights{
			Base:              50,
			Skills:            30,
			WorkModelMatch:    10,
			WorkModelMismatch: -5,
			SalaryMeets:       10,
			SalaryBelow:       -10,
		},
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c
	if out.StepTimeout <= 0 {
		out.StepTimeout = def.StepTimeout
	}
	if out.MaxInputLength <= 0 {
		out.MaxInputLength = def.MaxInputLength
	}
	if len(out.RequiredFields) == 0 {
		out.RequiredFields = def.RequiredFields
	}
	if out.Scoring == (ScoringWeights{}) {
		out.Scoring = def.Scoring
	}
	return out
}

// Deps bundles what every step needs: the model route resolution, the
// model capability, structured logging, and metrics.
type Deps struct {
	Router  *Router
	Invoker ports.ModelInvoker
	Logger  *slog.Logger
	Metrics Metrics
}

func (d *Deps) normalize() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
}

// callModel resolves the step's route and invokes the model. A nil
// invoker means the deployment runs heuristics-only; callers treat the
// empty response as "model unavailable".
func (d *Deps) callModel(ctx context.Context, step domain.StepName, prompt string) (string, error) {
	if d.Invoker == nil {
		return "", nil
	}
	route, err := d.Router.Resolve(step)
	if err != nil {
		return "", err
	}
	return d.Invoker.Invoke(ctx, route.ModelID, route.Tier, prompt)
}

// logFallback records a recovered or undetermined parse for audit: which
// step, which recovery tier won, and a preview of the raw model output.
func (d *Deps) logFallback(step domain.StepName, outcome ParseOutcome, raw string) {
	if outcome == ParseDirect {
		return
	}
	d.Metrics.ParseFallback(step, outcome.String())
	d.Logger.Warn("model_output_recovery",
		"step", string(step),
		"tier", outcome.String(),
		"raw_preview", preview(raw, 200),
	)
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
