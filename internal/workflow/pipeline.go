package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"sarchain/internal/artifact"
	"sarchain/internal/coregistration"
	"sarchain/internal/engine"
	"sarchain/internal/logging"
	"sarchain/internal/services"
	"sarchain/internal/services/snaphu"
	"sarchain/internal/stageexec"
	"sarchain/internal/stages"
)

// Coregister runs the master/slave chain over the configured inputs.
func (m *Manager) Coregister(ctx context.Context) (coregistration.Result, error) {
	var result coregistration.Result
	err := m.withSession(ctx, "coregister", func(s *session) error {
		var err error
		result, err = m.coregister(s)
		return err
	})
	return result, err
}

// Filter multilooks and Goldstein-filters each interferogram. With no paths
// it filters the interferograms a coregistration run would produce.
func (m *Manager) Filter(ctx context.Context, interferograms ...string) ([]artifact.Artifact, error) {
	var written []artifact.Artifact
	err := m.withSession(ctx, "filter", func(s *session) error {
		var err error
		written, err = m.filter(s, interferograms)
		return err
	})
	return written, err
}

// Unwrap runs the SNAPHU export graph through gpt, then discovers and runs
// the generated snaphu command. A gpt failure is fatal; everything after it
// is advisory and reported through the returned error's severity.
func (m *Manager) Unwrap(ctx context.Context) (snaphu.Report, error) {
	var report snaphu.Report
	err := m.withSession(ctx, "unwrap", func(s *session) error {
		var err error
		report, err = m.unwrap(s)
		return err
	})
	return report, err
}

// Geocode converts an unwrapped product to terrain-corrected displacement.
func (m *Manager) Geocode(ctx context.Context, productPath string) (artifact.Artifact, error) {
	var written artifact.Artifact
	err := m.withSession(ctx, "geocode", func(s *session) error {
		var err error
		written, err = m.geocode(s, productPath)
		return err
	})
	return written, err
}

// RunAll coregisters, filters, and unwraps in one locked session.
func (m *Manager) RunAll(ctx context.Context) error {
	return m.withSession(ctx, "run", func(s *session) error {
		result, err := m.coregister(s)
		if err != nil {
			return err
		}
		if _, err := m.filter(s, result.Interferograms()); err != nil {
			return err
		}
		_, err = m.unwrap(s)
		return err
	})
}

func (m *Manager) coregister(s *session) (coregistration.Result, error) {
	coordinator := coregistration.New(m.client, s.runner, m.logger)
	return coordinator.Run(s.ctx, m.Request())
}

func (m *Manager) filter(s *session, interferograms []string) ([]artifact.Artifact, error) {
	if len(interferograms) == 0 {
		plan, err := m.Plan()
		if err != nil {
			return nil, err
		}
		for _, slave := range plan.Slaves {
			interferograms = append(interferograms, slave.Steps[len(slave.Steps)-1].Checkpoint)
		}
	}
	if len(interferograms) == 0 {
		m.logger.Info("no interferograms to filter")
		return nil, nil
	}

	var written []artifact.Artifact
	for _, ifg := range interferograms {
		ctx := services.WithScene(s.ctx, productName(ifg))
		product, err := m.client.Read(ctx, ifg)
		if err != nil {
			return written, err
		}
		for _, st := range []stages.Stage{stages.Multilook(), stages.Goldstein()} {
			path, err := artifact.Derive(m.cfg.Paths.OutputDir, ifg, st.Rule)
			if err != nil {
				return written, err
			}
			next, a, err := s.runner.Run(ctx, stageexec.Request{
				Stage:      st,
				Inputs:     map[engine.Role]engine.Handle{engine.RoleSingle: product},
				Source:     ifg,
				Checkpoint: path,
			})
			if err != nil {
				return written, err
			}
			written = append(written, a)
			product = next
		}
	}
	return written, nil
}

func (m *Manager) unwrap(s *session) (snaphu.Report, error) {
	graph := m.cfg.Paths.GraphFile
	if err := requireFile(graph, "graph file"); err != nil {
		return snaphu.Report{}, err
	}

	ctx := services.WithStage(s.ctx, "unwrap")
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("running snaphu export graph",
		logging.String(logging.FieldEventType, "export_start"),
		logging.String("graph", graph),
	)
	result, err := m.runner.RunBlocking(ctx, m.cfg.Engine.GPTBinary, []string{graph}, "")
	if err != nil {
		return snaphu.Report{}, err
	}
	logger.Info("snaphu export graph finished",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.Duration("duration", result.Duration),
	)

	report := m.discovery().DiscoverAndRun(ctx, m.cfg.Paths.DiscoveryDir)
	return report, report.Err
}

func (m *Manager) geocode(s *session, productPath string) (artifact.Artifact, error) {
	if err := coregistration.CheckDEM(m.cfg.Paths.DEMFile); err != nil {
		return artifact.Artifact{}, err
	}
	path, err := artifact.Derive(m.cfg.Paths.OutputDir, productPath, artifact.TerrainCorrected)
	if err != nil {
		return artifact.Artifact{}, err
	}
	ctx := services.WithScene(s.ctx, productName(productPath))
	product, err := m.client.Read(ctx, productPath)
	if err != nil {
		return artifact.Artifact{}, err
	}
	_, written, err := s.runner.Run(ctx, stageexec.Request{
		Stage:      stages.Geocode(m.cfg.Paths.DEMFile),
		Inputs:     map[engine.Role]engine.Handle{engine.RoleSingle: product},
		Source:     productPath,
		Checkpoint: path,
	})
	return written, err
}

func requireFile(path, label string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrConfiguration, "workflow", "check "+label, fmt.Sprintf("%s does not exist", path), nil)
		}
		return services.Wrap(services.ErrConfiguration, "workflow", "check "+label, path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "workflow", "check "+label, fmt.Sprintf("%s is a directory", path), nil)
	}
	return nil
}
