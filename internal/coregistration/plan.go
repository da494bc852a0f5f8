package coregistration

import (
	"sarchain/internal/artifact"
	"sarchain/internal/scene"
	"sarchain/internal/services"
	"sarchain/internal/stages"
)

// Request is the immutable input to a coregistration run.
type Request struct {
	Inputs    []string
	OutputDir string
	DEMPath   string
	Split     stages.SplitSettings
	Orbit     stages.OrbitSettings
}

// Step is one planned stage with its checkpoint path.
type Step struct {
	Stage      stages.Stage
	Checkpoint string
}

// ScenePlan lists the steps a scene will run.
type ScenePlan struct {
	Product *scene.Product
	Steps   []Step
}

// Plan is the full run layout.
type Plan struct {
	Master ScenePlan
	Slaves []ScenePlan
}

// Checkpoints returns every checkpoint path in execution order.
func (p Plan) Checkpoints() []string {
	var paths []string
	for _, sp := range p.Scenes() {
		for _, step := range sp.Steps {
			paths = append(paths, step.Checkpoint)
		}
	}
	return paths
}

// Scenes returns the master followed by slaves.
func (p Plan) Scenes() []ScenePlan {
	return append([]ScenePlan{p.Master}, p.Slaves...)
}

// BuildPlan orders the inputs, assigns roles, and derives every checkpoint
// path. It performs no engine calls and does not check the DEM.
func BuildPlan(req Request) (Plan, error) {
	if len(req.Inputs) == 0 {
		return Plan{}, services.Wrap(services.ErrConfiguration, "plan", "order scenes", "no input scenes", nil)
	}
	products, err := scene.Order(req.Inputs)
	if err != nil {
		return Plan{}, err
	}

	splitOrbit := stages.SplitOrbit(req.Split, req.Orbit)
	master := products[0]
	if err := master.Assign(scene.Master); err != nil {
		return Plan{}, services.Wrap(services.ErrConfiguration, "plan", "assign master", master.Name(), err)
	}
	masterPlan, err := planScene(req.OutputDir, master, []stages.Stage{splitOrbit})
	if err != nil {
		return Plan{}, err
	}

	slaveStages := append([]stages.Stage{splitOrbit}, stages.SlaveChain(req.DEMPath)...)
	plan := Plan{Master: masterPlan}
	for _, product := range products[1:] {
		if err := product.Assign(scene.Slave); err != nil {
			return Plan{}, services.Wrap(services.ErrConfiguration, "plan", "assign slave", product.Name(), err)
		}
		sp, err := planScene(req.OutputDir, product, slaveStages)
		if err != nil {
			return Plan{}, err
		}
		plan.Slaves = append(plan.Slaves, sp)
	}
	return plan, nil
}

func planScene(outputDir string, product *scene.Product, list []stages.Stage) (ScenePlan, error) {
	sp := ScenePlan{Product: product, Steps: make([]Step, 0, len(list))}
	for _, st := range list {
		path, err := artifact.Derive(outputDir, product.SourcePath, st.Rule)
		if err != nil {
			return ScenePlan{}, err
		}
		sp.Steps = append(sp.Steps, Step{Stage: st, Checkpoint: path})
	}
	return sp, nil
}
