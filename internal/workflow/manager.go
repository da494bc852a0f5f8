package workflow

import (
	"context"
	"log/slog"

	"sarchain/internal/config"
	"sarchain/internal/coregistration"
	"sarchain/internal/engine"
	"sarchain/internal/ledger"
	"sarchain/internal/logging"
	"sarchain/internal/services/gpt"
	"sarchain/internal/services/snaphu"
	"sarchain/internal/stages"
	"sarchain/internal/toolexec"
)

// Runner runs external programs in both blocking and streaming mode.
type Runner interface {
	RunBlocking(ctx context.Context, name string, args []string, dir string) (toolexec.Result, error)
	Stream(ctx context.Context, command, dir string, onLine func(string)) (toolexec.Result, error)
}

// Manager runs pipeline entry points for one configuration.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	runner Runner
	client engine.Client
	ledger *ledger.Store
}

// Option configures a Manager.
type Option func(*Manager)

// WithEngine replaces the gpt-backed engine client.
func WithEngine(client engine.Client) Option {
	return func(m *Manager) { m.client = client }
}

// WithRunner replaces the process runner used for gpt and snaphu.
func WithRunner(runner Runner) Option {
	return func(m *Manager) { m.runner = runner }
}

// WithLedger records runs and artifacts in store.
func WithLedger(store *ledger.Store) Option {
	return func(m *Manager) { m.ledger = store }
}

// NewManager constructs a Manager. Without options it runs gpt and snaphu
// through toolexec and does not record a ledger.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runner == nil {
		m.runner = toolexec.New(logger)
	}
	if m.client == nil {
		m.client = gpt.New(m.runner, cfg.GraphWorkDir(),
			gpt.WithBinary(cfg.Engine.GPTBinary),
			gpt.WithFormat(cfg.Engine.Format),
			gpt.WithLogger(logger),
		)
	}
	return m
}

// Request builds the coregistration request for the configured inputs.
func (m *Manager) Request() coregistration.Request {
	return coregistration.Request{
		Inputs:    append([]string(nil), m.cfg.Inputs...),
		OutputDir: m.cfg.Paths.OutputDir,
		DEMPath:   m.cfg.Paths.DEMFile,
		Split: stages.SplitSettings{
			Subswath:      m.cfg.Split.Subswath,
			Polarisations: m.cfg.Split.Polarisations,
			FirstBurst:    m.cfg.Split.FirstBurst,
			LastBurst:     m.cfg.Split.LastBurst,
		},
		Orbit: stages.OrbitSettings{
			OrbitType:  m.cfg.Orbit.OrbitType,
			PolyDegree: m.cfg.Orbit.PolyDegree,
		},
	}
}

// Plan returns the dry-run layout for the configured inputs.
func (m *Manager) Plan() (coregistration.Plan, error) {
	return coregistration.BuildPlan(m.Request())
}

func (m *Manager) discovery() *snaphu.Discovery {
	return snaphu.New(m.runner,
		snaphu.WithLogger(m.logger),
		snaphu.WithConfigName(m.cfg.Unwrap.ConfigName),
	)
}
