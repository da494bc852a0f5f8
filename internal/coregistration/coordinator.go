package coregistration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"sarchain/internal/artifact"
	"sarchain/internal/engine"
	"sarchain/internal/logging"
	"sarchain/internal/services"
	"sarchain/internal/stageexec"
	"sarchain/internal/stages"
)

// SceneResult holds the checkpoints one scene produced.
type SceneResult struct {
	Name      string
	Source    string
	Artifacts []artifact.Artifact
}

// Final returns the last checkpoint the scene wrote.
func (r SceneResult) Final() artifact.Artifact {
	if len(r.Artifacts) == 0 {
		return artifact.Artifact{}
	}
	return r.Artifacts[len(r.Artifacts)-1]
}

// Result summarizes a completed run.
type Result struct {
	Master SceneResult
	Slaves []SceneResult
}

// Artifacts returns every checkpoint in write order.
func (r Result) Artifacts() []artifact.Artifact {
	all := append([]artifact.Artifact(nil), r.Master.Artifacts...)
	for _, slave := range r.Slaves {
		all = append(all, slave.Artifacts...)
	}
	return all
}

// Interferograms returns the final checkpoint of every slave.
func (r Result) Interferograms() []string {
	paths := make([]string, 0, len(r.Slaves))
	for _, slave := range r.Slaves {
		paths = append(paths, slave.Final().Path)
	}
	return paths
}

// Coordinator owns the per-scene state machine.
type Coordinator struct {
	client engine.Client
	runner *stageexec.Runner
	logger *slog.Logger
}

// New constructs a Coordinator.
func New(client engine.Client, runner *stageexec.Runner, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client: client,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "coregistration"),
	}
}

// Run executes the master chain and then each slave chain in ascending time
// order. The first failure stops the run.
func (c *Coordinator) Run(ctx context.Context, req Request) (Result, error) {
	if err := CheckDEM(req.DEMPath); err != nil {
		return Result{}, err
	}
	plan, err := BuildPlan(req)
	if err != nil {
		return Result{}, err
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("coregistration started",
		logging.String(logging.FieldEventType, "coregistration_start"),
		logging.String("master", plan.Master.Product.Name()),
		logging.Int("slaves", len(plan.Slaves)),
	)

	masterResult, masterProduct, err := c.runScene(ctx, req, plan.Master, nil)
	if err != nil {
		return Result{}, err
	}
	result := Result{Master: masterResult}

	for _, sp := range plan.Slaves {
		slaveResult, _, err := c.runScene(ctx, req, sp, masterProduct)
		if err != nil {
			return result, err
		}
		result.Slaves = append(result.Slaves, slaveResult)
	}

	logger.Info("coregistration completed",
		logging.String(logging.FieldEventType, "coregistration_complete"),
		logging.Int("artifacts", len(result.Artifacts())),
	)
	return result, nil
}

// runScene reads the source and runs the planned steps. A nil master means
// the scene is the master itself.
func (c *Coordinator) runScene(ctx context.Context, req Request, sp ScenePlan, master engine.Handle) (SceneResult, engine.Handle, error) {
	product := sp.Product
	sceneCtx := services.WithRole(services.WithScene(ctx, product.Name()), product.Role().String())
	result := SceneResult{Name: product.Name(), Source: product.SourcePath}

	logging.WithContext(sceneCtx, c.logger).Info("processing scene",
		logging.String("source_file", product.SourcePath),
		logging.String("acquired_at", product.AcquiredAt.Format("2006-01-02T15:04:05")),
	)

	current, err := c.client.Read(sceneCtx, product.SourcePath)
	if err != nil {
		return result, nil, readError(product.SourcePath, err)
	}

	for _, step := range sp.Steps {
		inputs := map[engine.Role]engine.Handle{engine.RoleSingle: current}
		if step.Stage.Name == stages.NameBackGeocoding {
			if master == nil {
				return result, nil, services.Wrap(services.ErrConfiguration, step.Stage.Name, "pair scenes", "master product unavailable", nil)
			}
			if err := CheckDEM(req.DEMPath); err != nil {
				return result, nil, err
			}
			inputs = map[engine.Role]engine.Handle{engine.RoleMaster: master, engine.RoleSlave: current}
		}
		next, written, err := c.runner.Run(sceneCtx, stageexec.Request{
			Stage:      step.Stage,
			Inputs:     inputs,
			Source:     product.SourcePath,
			Checkpoint: step.Checkpoint,
		})
		if err != nil {
			return result, nil, err
		}
		result.Artifacts = append(result.Artifacts, written)
		current = next
	}
	return result, current, nil
}

// CheckDEM verifies the elevation model file exists and is a regular file.
func CheckDEM(path string) error {
	if path == "" {
		return services.Wrap(services.ErrConfiguration, stages.NameBackGeocoding, "check dem", "dem path not set", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrConfiguration, stages.NameBackGeocoding, "check dem", fmt.Sprintf("dem file %s does not exist", path), nil)
		}
		return services.Wrap(services.ErrConfiguration, stages.NameBackGeocoding, "check dem", path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrConfiguration, stages.NameBackGeocoding, "check dem", fmt.Sprintf("dem path %s is a directory", path), nil)
	}
	return nil
}

func readError(path string, err error) error {
	var opErr *engine.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &engine.OperationError{Operation: "Read", Err: fmt.Errorf("%s: %w", path, err)}
}
