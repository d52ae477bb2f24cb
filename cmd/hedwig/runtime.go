package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"hedwig/internal/adapter/llm"
	"hedwig/internal/adapter/tool"
	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/internal/infra/tracer"
	"hedwig/internal/security"
	"hedwig/internal/usecase"
	"hedwig/internal/usecase/agents"
	"hedwig/internal/usecase/eventbus"
	"hedwig/internal/usecase/multiagent"
)

// app holds the wired orchestration core for one CLI invocation.
type app struct {
	cfg          *config.Config
	log          *slog.Logger
	bus          *eventbus.Bus
	tools        *tool.Registry
	gateway      *security.Gateway
	engine       llm.Engine
	executor     *usecase.Executor
	dispatcher   *multiagent.Dispatcher
	orchestrator *multiagent.Orchestrator
	cleanups     []func()
}

// ioStreams are the terminal streams used for confirmations and output.
type ioStreams struct {
	in          io.Reader
	out         io.Writer
	interactive bool // in is a terminal the user can answer prompts on
}

func stdStreams() ioStreams {
	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = fi.Mode()&os.ModeCharDevice != 0
	}
	return ioStreams{in: os.Stdin, out: os.Stdout, interactive: interactive}
}

// newApp loads configuration and wires every component. Close releases
// what was started, in reverse order.
func newApp(ctx context.Context, path string, streams ioStreams) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.cleanups = append(a.cleanups, func() { _ = closeLog() })

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.cleanups = append(a.cleanups, func() { _ = shutdownTracer(context.Background()) })

	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		mctx, cancel := context.WithCancel(ctx)
		go func() {
			if err := metrics.Serve(mctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		a.cleanups = append(a.cleanups, cancel)
	}

	a.bus = eventbus.New(log)
	a.cleanups = append(a.cleanups, a.bus.Close)

	sandbox, gateway, err := initSecurity(cfg, log, a.bus, streams)
	if err != nil {
		return nil, err
	}
	a.gateway = gateway

	a.tools = tool.NewRegistry(log, tool.WithArgumentValidation(cfg.Tools.SchemaValidation))
	if err := tool.RegisterDefaults(a.tools, cfg.Tools, sandbox, log); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	a.engine, err = llm.New(cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("reasoning engine: %w", err)
	}
	if a.engine == nil {
		log.Warn("no reasoning engine configured, agents return placeholder responses")
	}

	a.executor = usecase.NewExecutor(usecase.ExecutorDeps{
		Tools:         a.tools,
		Runner:        a.gateway,
		Engine:        a.engine,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        log,
	})

	opts := []multiagent.DispatcherOption{
		multiagent.WithHistorySize(cfg.Dispatcher.HistorySize),
		multiagent.WithDispatcherEventBus(a.bus),
	}
	if cfg.Dispatcher.UseLLM && a.engine != nil {
		opts = append(opts, multiagent.WithRoutingEngine(a.engine))
	}
	a.dispatcher = multiagent.NewDispatcher(multiagent.NewRegistry(log), log, opts...)
	if err := registerAgents(a.dispatcher, a.executor, a.generalTools(), log); err != nil {
		return nil, err
	}

	a.orchestrator = multiagent.NewOrchestrator(a.dispatcher, log,
		multiagent.WithMaxRetries(cfg.Agent.MaxRetries),
		multiagent.WithOrchestratorEventBus(a.bus),
	)

	log.Info("hedwig ready",
		"agents", a.dispatcher.Agents(),
		"tools", a.tools.Names(),
		"engine", a.engineName(),
		"confirm_mode", cfg.Security.ConfirmMode,
	)
	return a, nil
}

// generalTools is the tool allow list of the general agent.
func (a *app) generalTools() []string {
	if len(a.cfg.Agent.AllowedTools) > 0 {
		return a.cfg.Agent.AllowedTools
	}
	return a.tools.Names()
}

func (a *app) engineName() string {
	if a.engine == nil {
		return "none"
	}
	return a.engine.Name()
}

// newPool creates a worker pool over the orchestrator.
func (a *app) newPool() *multiagent.Pool {
	return multiagent.NewPool(a.orchestrator, a.cfg.Pool.Workers, a.cfg.Pool.QueueSize, a.log)
}

// Close runs the cleanups in reverse order.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

// registerAgents registers the general agent and the two specialists.
func registerAgents(d *multiagent.Dispatcher, exec *usecase.Executor, generalTools []string, log *slog.Logger) error {
	for _, agent := range []domain.Agent{
		agents.NewGeneralAgent(exec, generalTools, log),
		agents.NewSWEAgent(exec, log),
		agents.NewResearchAgent(exec, log),
	} {
		if err := d.RegisterAgent(agent); err != nil {
			return fmt.Errorf("register agent %s: %w", agent.Name(), err)
		}
	}
	return nil
}
