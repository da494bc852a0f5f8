// Package stageexec runs a single pipeline stage against the engine and
// checkpoints its output.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sarchain/internal/artifact"
	"sarchain/internal/engine"
	"sarchain/internal/logging"
	"sarchain/internal/services"
	"sarchain/internal/stages"
)

// Request describes one stage execution.
type Request struct {
	Stage  stages.Stage
	Inputs map[engine.Role]engine.Handle
	// Source is the input product the checkpoint descends from.
	Source string
	// Checkpoint is the derived path the stage output is written to.
	Checkpoint string
}

// Runner applies stages through an engine client and persists each result.
type Runner struct {
	client engine.Client
	store  *artifact.Store
	logger *slog.Logger
}

// New constructs a Runner.
func New(client engine.Client, store *artifact.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{client: client, store: store, logger: logger}
}

// Run invokes every step of the stage and then unconditionally persists the
// final product at req.Checkpoint. Engine and persistence errors are returned
// unchanged; nothing is retried.
func (r *Runner) Run(ctx context.Context, req Request) (engine.Handle, artifact.Artifact, error) {
	written := artifact.Artifact{Path: req.Checkpoint, Stage: req.Stage.Name, Source: req.Source}
	if r.client == nil {
		return nil, written, services.Wrap(services.ErrConfiguration, req.Stage.Name, "run", "engine client unavailable", nil)
	}
	if r.store == nil {
		return nil, written, services.Wrap(services.ErrConfiguration, req.Stage.Name, "run", "artifact store unavailable", nil)
	}
	if len(req.Stage.Steps) == 0 {
		return nil, written, services.Wrap(services.ErrConfiguration, req.Stage.Name, "run", "stage has no operations", nil)
	}

	stageCtx := services.WithStage(ctx, req.Stage.Name)
	logger := logging.WithContext(stageCtx, r.logger)
	logger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("label", req.Stage.Label()),
		logging.String("operators", strings.Join(req.Stage.OperatorNames(), ",")),
		logging.String("source_file", req.Source),
	)
	started := time.Now()

	inputs := req.Inputs
	var product engine.Handle
	for i, op := range req.Stage.Steps {
		if i > 0 {
			inputs = map[engine.Role]engine.Handle{engine.RoleSingle: product}
		}
		logger.Debug("invoking operator",
			logging.String("operator", op.Name),
			logging.Int("params", len(op.Params)),
		)
		next, err := r.client.Invoke(stageCtx, op, inputs)
		if err != nil {
			return nil, written, r.fail(logger, err)
		}
		if next == nil {
			err := &engine.OperationError{Operation: op.Name, Err: fmt.Errorf("engine returned no product")}
			return nil, written, r.fail(logger, err)
		}
		product = next
	}

	written, err := r.store.Persist(stageCtx, product, written)
	if err != nil {
		return nil, written, r.fail(logger, err)
	}

	logger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("checkpoint", written.Path),
		logging.Duration("duration", time.Since(started)),
	)
	return product, written, nil
}

func (r *Runner) fail(logger *slog.Logger, err error) error {
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldSeverity, services.SeverityOf(err).String()),
		logging.Error(err),
	)
	return err
}
