package coregistration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sarchain/internal/artifact"
	"sarchain/internal/config"
	"sarchain/internal/coregistration"
	"sarchain/internal/engine"
	"sarchain/internal/scene"
	"sarchain/internal/services"
	"sarchain/internal/stageexec"
	"sarchain/internal/stages"
	"sarchain/internal/testsupport"
)

func requestFor(cfg *config.Config) coregistration.Request {
	return coregistration.Request{
		Inputs:    cfg.Inputs,
		OutputDir: cfg.Paths.OutputDir,
		DEMPath:   cfg.Paths.DEMFile,
		Split: stages.SplitSettings{
			Subswath:      cfg.Split.Subswath,
			Polarisations: cfg.Split.Polarisations,
			FirstBurst:    cfg.Split.FirstBurst,
			LastBurst:     cfg.Split.LastBurst,
		},
		Orbit: stages.OrbitSettings{OrbitType: cfg.Orbit.OrbitType, PolyDegree: cfg.Orbit.PolyDegree},
	}
}

func newCoordinator(fake *testsupport.FakeEngine) *coregistration.Coordinator {
	runner := stageexec.New(fake, artifact.NewStore(fake), nil)
	return coregistration.New(fake, runner, nil)
}

func stem(timestamp string) string {
	return strings.TrimSuffix(testsupport.SceneName(timestamp), ".SAFE")
}

func TestRunTwoScenesEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := &testsupport.FakeEngine{}

	result, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := cfg.Paths.OutputDir
	masterStem, slaveStem := stem(testsupport.MasterTimestamp), stem(testsupport.SlaveTimestamp)
	wantPaths := []string{
		filepath.Join(out, masterStem+"_split_orbit.dim"),
		filepath.Join(out, slaveStem+"_split_orbit.dim"),
		filepath.Join(out, slaveStem+"_split_orbit_backgeo.dim"),
		filepath.Join(out, slaveStem+"_esd.dim"),
		filepath.Join(out, slaveStem+"_deburst.dim"),
		filepath.Join(out, slaveStem+"_interferogram.dim"),
	}
	if diff := cmp.Diff(wantPaths, fake.WrittenPaths()); diff != "" {
		t.Fatalf("written paths (-want +got):\n%s", diff)
	}
	if len(result.Master.Artifacts) != 1 || len(result.Slaves) != 1 || len(result.Slaves[0].Artifacts) != 5 {
		t.Fatalf("unexpected artifact counts: master=%d slaves=%d", len(result.Master.Artifacts), len(result.Slaves))
	}
	if result.Master.Name != masterStem {
		t.Fatalf("master = %s", result.Master.Name)
	}
	if diff := cmp.Diff([]string{wantPaths[5]}, result.Interferograms()); diff != "" {
		t.Fatalf("interferograms (-want +got):\n%s", diff)
	}
	for _, path := range wantPaths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing checkpoint %s: %v", path, err)
		}
	}

	wantOps := []string{
		"TOPSAR-Split", "Apply-Orbit-File",
		"TOPSAR-Split", "Apply-Orbit-File",
		"Back-Geocoding", "Enhanced-Spectral-Diversity", "TOPSAR-Deburst", "Interferogram",
	}
	if diff := cmp.Diff(wantOps, fake.OperationNames()); diff != "" {
		t.Fatalf("operations (-want +got):\n%s", diff)
	}

	backgeo := fake.Invocations[4]
	masterProduct := "Apply-Orbit-File(TOPSAR-Split(" + testsupport.SceneName(testsupport.MasterTimestamp) + "))"
	slaveProduct := "Apply-Orbit-File(TOPSAR-Split(" + testsupport.SceneName(testsupport.SlaveTimestamp) + "))"
	wantInputs := map[engine.Role]string{engine.RoleMaster: masterProduct, engine.RoleSlave: slaveProduct}
	if diff := cmp.Diff(wantInputs, backgeo.Inputs); diff != "" {
		t.Fatalf("back-geocoding inputs (-want +got):\n%s", diff)
	}
}

func TestEverySlavePairsWithMaster(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	third := testsupport.MakeScene(t, filepath.Dir(cfg.Inputs[0]), "20220122T231926")
	cfg.Inputs = append([]string{third}, cfg.Inputs...)
	fake := &testsupport.FakeEngine{}

	result, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Slaves) != 2 {
		t.Fatalf("slaves = %d", len(result.Slaves))
	}
	if result.Slaves[0].Name != stem(testsupport.SlaveTimestamp) || result.Slaves[1].Name != stem("20220122T231926") {
		t.Fatalf("slave order %s, %s", result.Slaves[0].Name, result.Slaves[1].Name)
	}
	masterProduct := "Apply-Orbit-File(TOPSAR-Split(" + testsupport.SceneName(testsupport.MasterTimestamp) + "))"
	var pairings int
	for _, inv := range fake.Invocations {
		if inv.Operation != "Back-Geocoding" {
			continue
		}
		pairings++
		if inv.Inputs[engine.RoleMaster] != masterProduct {
			t.Fatalf("back-geocoding paired with %s", inv.Inputs[engine.RoleMaster])
		}
	}
	if pairings != 2 {
		t.Fatalf("pairings = %d", pairings)
	}
	if len(fake.WrittenPaths()) != 11 {
		t.Fatalf("written = %d", len(fake.WrittenPaths()))
	}
}

func TestMissingDEMFailsBeforeEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMissingDEM())
	fake := &testsupport.FakeEngine{}

	_, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if len(fake.Invocations) != 0 || len(fake.Reads) != 0 || len(fake.Writes) != 0 {
		t.Fatalf("engine touched: reads=%d invocations=%d writes=%d", len(fake.Reads), len(fake.Invocations), len(fake.Writes))
	}
}

func TestDEMRemovedMidRunFailsBeforeBackGeocoding(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := &removingEngine{FakeEngine: &testsupport.FakeEngine{}, dem: cfg.Paths.DEMFile}
	runner := stageexec.New(fake, artifact.NewStore(fake), nil)

	_, err := coregistration.New(fake, runner, nil).Run(context.Background(), requestFor(cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	for _, name := range fake.OperationNames() {
		if name == "Back-Geocoding" {
			t.Fatal("back-geocoding invoked without DEM")
		}
	}
}

// removingEngine deletes the DEM after the first checkpoint is written.
type removingEngine struct {
	*testsupport.FakeEngine
	dem string
}

func (r *removingEngine) Write(ctx context.Context, product engine.Handle, path string) error {
	if err := r.FakeEngine.Write(ctx, product, path); err != nil {
		return err
	}
	return os.RemoveAll(r.dem)
}

func TestOperationFailureStopsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := &testsupport.FakeEngine{FailOperation: "Enhanced-Spectral-Diversity"}

	result, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg))
	if !errors.Is(err, services.ErrOperation) {
		t.Fatalf("expected ErrOperation, got %v", err)
	}
	if services.SeverityOf(err) != services.SeverityFatal {
		t.Fatal("expected fatal severity")
	}
	if len(result.Slaves) != 0 {
		t.Fatalf("partial slave reported: %+v", result.Slaves)
	}
	if got := len(fake.WrittenPaths()); got != 3 {
		t.Fatalf("written = %d, want 3", got)
	}
}

func TestTimestampFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inputs = append(cfg.Inputs, filepath.Join(testsupport.BaseDir(cfg), "input", "broken.SAFE"))
	fake := &testsupport.FakeEngine{}
	_, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg))
	if !errors.Is(err, services.ErrTimestampParse) {
		t.Fatalf("expected ErrTimestampParse, got %v", err)
	}
	if len(fake.Invocations) != 0 {
		t.Fatalf("engine invoked %d times", len(fake.Invocations))
	}
}

func TestBuildPlanMatchesRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	plan, err := coregistration.BuildPlan(requestFor(cfg))
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Master.Product.Role() != scene.Master || plan.Slaves[0].Product.Role() != scene.Slave {
		t.Fatal("roles not assigned")
	}
	fake := &testsupport.FakeEngine{}
	if _, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(plan.Checkpoints(), fake.WrittenPaths()); diff != "" {
		t.Fatalf("plan and run disagree (-plan +run):\n%s", diff)
	}
}

func TestBuildPlanRequiresInputs(t *testing.T) {
	if _, err := coregistration.BuildPlan(coregistration.Request{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSingleSceneIsMasterOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inputs = cfg.Inputs[:1]
	fake := &testsupport.FakeEngine{}
	result, err := newCoordinator(fake).Run(context.Background(), requestFor(cfg))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Slaves) != 0 || len(result.Artifacts()) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}
