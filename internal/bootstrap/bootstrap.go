package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelasquez/talent-inbound/internal/config"
	"github.com/avelasquez/talent-inbound/internal/core/pipeline"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
	"github.com/avelasquez/talent-inbound/internal/core/usecase"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/extractor/cvtext"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/llm/ollama"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/queue/nats"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/repository/postgres"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/resilience"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/storage/localfs"
	"github.com/avelasquez/talent-inbound/internal/observability/logging"
	"github.com/avelasquez/talent-inbound/internal/observability/metrics"
)

const (
	ServiceAPI    = "api"
	ServiceWorker = "worker"
)

// App wires the full dependency graph for one service process.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue         ports.MessageQueue
	Hub           *pipeline.Hub
	Opportunities ports.OpportunityRepository
	Interactions  ports.InteractionRepository
	Drafts        ports.DraftRepository

	IngestUC      *usecase.IngestMessageUseCase
	ProcessUC     *usecase.ProcessInteractionUseCase
	DraftUC       *usecase.GenerateDraftUseCase
	ProfileUC     *usecase.ProfileUseCase
	OpportunityUC *usecase.OpportunityUseCase

	// One of these is set, depending on the service.
	ServerMetrics *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.New(service, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	opportunities := postgres.NewOpportunityRepository(db)
	interactions := postgres.NewInteractionRepository(db)
	profiles := postgres.NewProfileRepository(db)
	drafts := postgres.NewDraftRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	extractor := cvtext.NewExtractor(storage)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ProgressSubject: cfg.NATSProgressSubject,
		Executor:        resilience.NewExecutor(resilience.DefaultPolicy(), logger),
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	app := &App{
		Config:        cfg,
		Logger:        logger,
		Queue:         queue,
		Opportunities: opportunities,
		Interactions:  interactions,
		Drafts:        drafts,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}

	var registry *prometheus.Registry
	if service == ServiceWorker {
		app.WorkerMetrics = metrics.NewWorkerMetrics(service)
		registry = app.WorkerMetrics.Registry()
	} else {
		app.ServerMetrics = metrics.NewHTTPServerMetrics(service)
		registry = app.ServerMetrics.Registry()
	}
	pipeMetrics := metrics.NewPipelineMetrics(registry, service)

	pipeCfg, err := cfg.Pipeline()
	if err != nil {
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}
	modelRouter, err := pipeline.NewRouter(pipeline.RouterConfig{
		FastModelID:     cfg.OllamaFastModel,
		AccurateModelID: cfg.OllamaAccurateModel,
		TierOverrides:   pipeCfg.TierOverrides,
	})
	if err != nil {
		return nil, fmt.Errorf("build model router: %w", err)
	}

	invoker := ollama.New(cfg.OllamaURL, time.Duration(cfg.OllamaTimeoutSecs)*time.Second, logger)
	app.Hub = pipeline.NewHub(logger)

	// The orchestrator runs in the worker while the SSE endpoint lives
	// in the API, so progress crosses processes over NATS: the worker
	// relays every hub event onto the bus, the API feeds its hub from
	// the bus subscription.
	var sink ports.ProgressSink = app.Hub
	if service == ServiceWorker {
		sink = &pipeline.RelaySink{Hub: app.Hub, Bus: queue, Logger: logger}
	} else {
		unsubscribe, err := queue.SubscribeProgress(app.Hub.Dispatch)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("subscribe pipeline progress: %w", err)
		}
		closeQueue := app.closeFn
		app.closeFn = func() {
			unsubscribe()
			closeQueue()
		}
	}

	deps := pipeline.Deps{
		Router:  modelRouter,
		Invoker: invoker,
		Logger:  logger,
		Metrics: pipeMetrics,
	}
	orchestrator := pipeline.NewOrchestrator(pipeCfg, deps, sink)

	app.IngestUC = usecase.NewIngestMessageUseCase(interactions, opportunities, queue, cfg.MaxMessageLength)
	app.ProcessUC = usecase.NewProcessInteractionUseCase(interactions, opportunities, profiles, drafts, orchestrator, logger)
	app.DraftUC = usecase.NewGenerateDraftUseCase(opportunities, profiles, drafts, &deps)
	app.ProfileUC = usecase.NewProfileUseCase(profiles, storage, extractor, logger)
	app.OpportunityUC = usecase.NewOpportunityUseCase(opportunities, logger)

	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
