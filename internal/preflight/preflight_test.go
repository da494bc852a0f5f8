package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sarchain/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputDirNotYetCreated(t *testing.T) {
	result := CheckOutputDir("out", filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "dem.tif")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckFile("dem", f); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckFile("dem", dir); r.Passed {
		t.Fatal("expected failure for directory")
	}
	if r := CheckFile("dem", filepath.Join(dir, "missing")); r.Passed {
		t.Fatal("expected failure for missing file")
	}
	if r := CheckFile("dem", ""); r.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckInputs(t *testing.T) {
	dir := t.TempDir()
	good := testsupport.MakeScene(t, dir, testsupport.MasterTimestamp)
	badName := filepath.Join(dir, "renamed.SAFE")
	if err := os.MkdirAll(badName, 0o755); err != nil {
		t.Fatal(err)
	}
	results := CheckInputs([]string{good, badName, filepath.Join(dir, "missing.SAFE")})
	if !results[0].Passed || results[1].Passed || results[2].Passed {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("gpt"))
	cfg.Unwrap.SnaphuBinary = "clearly-not-present-snaphu"

	results := RunAll(context.Background(), cfg)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Output directory", "DEM file", "Unwrap graph", "Input 1", "Input 2", "SNAP gpt"} {
		if !byName[name].Passed {
			t.Errorf("%s failed: %s", name, byName[name].Detail)
		}
	}
	if r := byName["SNAPHU"]; r.Passed || !r.Advisory {
		t.Errorf("SNAPHU = %+v", r)
	}
	if r := byName["Discovery directory"]; r.Passed || !r.Advisory {
		t.Errorf("Discovery directory = %+v", r)
	}
	if blocking := Blocking(results); len(blocking) != 0 {
		t.Fatalf("unexpected blocking failures %+v", blocking)
	}

	cfg.Paths.DEMFile = filepath.Join(testsupport.BaseDir(cfg), "missing.tif")
	if blocking := Blocking(RunAll(context.Background(), cfg)); len(blocking) != 1 || blocking[0].Name != "DEM file" {
		t.Fatalf("blocking = %+v", blocking)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results")
	}
}
