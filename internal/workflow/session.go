package workflow

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"

	"sarchain/internal/artifact"
	"sarchain/internal/logging"
	"sarchain/internal/services"
	"sarchain/internal/stageexec"
)

// session is the per-command context: a held lock, a ledger run, and a stage
// runner whose store records into that run.
type session struct {
	ctx    context.Context
	runner *stageexec.Runner
}

func (m *Manager) withSession(ctx context.Context, command string, fn func(*session) error) (err error) {
	lock, err := m.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			m.logger.Warn("failed to release output lock", logging.Error(unlockErr))
		}
	}()

	storeOpts := []artifact.Option{artifact.WithLogger(m.logger)}
	if m.ledger != nil {
		run, beginErr := m.ledger.BeginRun(ctx, command)
		if beginErr != nil {
			m.logger.Warn("ledger unavailable; continuing without run record", logging.Error(beginErr))
		} else {
			ctx = services.WithRunID(ctx, run.ID)
			storeOpts = append(storeOpts, artifact.WithRecorder(m.ledger.Recorder(run.ID)))
			defer func() {
				if finishErr := m.ledger.FinishRun(context.WithoutCancel(ctx), run.ID, err); finishErr != nil {
					m.logger.Warn("ledger run update failed", logging.Error(finishErr))
				}
			}()
		}
	}

	logger := logging.WithContext(ctx, m.logger)
	logger.Info("command started",
		logging.String(logging.FieldEventType, "command_start"),
		logging.String("command", command),
		logging.String("output_dir", m.cfg.Paths.OutputDir),
	)

	store := artifact.NewStore(m.client, storeOpts...)
	err = fn(&session{
		ctx:    ctx,
		runner: stageexec.New(m.client, store, m.logger),
	})
	if err == nil {
		logger.Info("command completed",
			logging.String(logging.FieldEventType, "command_complete"),
			logging.String("command", command),
		)
	}
	return err
}

func (m *Manager) acquireLock() (*flock.Flock, error) {
	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "ensure directories", "", err)
	}
	lockPath := m.cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "acquire lock", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "acquire lock",
			fmt.Sprintf("another sarchain run holds %s", lockPath), nil)
	}
	return lock, nil
}
