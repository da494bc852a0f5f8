package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sarchain/internal/artifact"
	"sarchain/internal/engine"
	"sarchain/internal/services"
)

type product string

func (p product) Name() string { return string(p) }

type fileWriter struct {
	calls int
	err   error
}

func (w *fileWriter) Write(_ context.Context, h engine.Handle, path string) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	return os.WriteFile(path, []byte(h.Name()), 0o644)
}

type recorder struct {
	got []artifact.Artifact
	err error
}

func (r *recorder) RecordArtifact(_ context.Context, a artifact.Artifact) error {
	r.got = append(r.got, a)
	return r.err
}

const safe = "/in/S1A_IW_SLC__1SDV_20220110T231926_20220110T231953_041405_04EC57_103E.SAFE"

func TestDerive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rule  artifact.Rule
		want  string
	}{
		{"split orbit", safe, artifact.SplitOrbit, "/out/S1A_IW_SLC__1SDV_20220110T231926_20220110T231953_041405_04EC57_103E_split_orbit.dim"},
		{"back geocoded", safe, artifact.BackGeocoded, "/out/S1A_IW_SLC__1SDV_20220110T231926_20220110T231953_041405_04EC57_103E_split_orbit_backgeo.dim"},
		{"trailing slash", safe + "/", artifact.Interferogram, "/out/S1A_IW_SLC__1SDV_20220110T231926_20220110T231953_041405_04EC57_103E_interferogram.dim"},
		{"goldstein", "/out/X_interferogram.dim", artifact.Goldstein, "/out/X_interferogram_goldstein.dim"},
		{"multilook", "/out/X_interferogram.dim", artifact.Multilook, "/out/X_interferogram_multilook.dim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := artifact.Derive("/out", tt.input, tt.rule)
			if err != nil {
				t.Fatalf("Derive: %v", err)
			}
			second, _ := artifact.Derive("/out", tt.input, tt.rule)
			if first != tt.want || second != first {
				t.Fatalf("Derive = %q then %q, want %q", first, second, tt.want)
			}
		})
	}
}

func TestDeriveRejectsMismatchedSuffix(t *testing.T) {
	for _, input := range []string{"/in/product.zip", "/in/.SAFE"} {
		if _, err := artifact.Derive("/out", input, artifact.SplitOrbit); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", input, err)
		}
	}
	if _, err := artifact.Derive("/out", safe, artifact.Rule{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for empty rule, got %v", err)
	}
}

func TestPersistReplacesPreviousContent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	path := filepath.Join(dir, "A_esd.dim")
	if err := os.MkdirAll(filepath.Join(dir, "A_esd.data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "A_esd.data", "stale.img")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	writer := &fileWriter{}
	rec := &recorder{}
	store := artifact.NewStore(writer, artifact.WithRecorder(rec))
	got, err := store.Persist(context.Background(), product("fresh"), artifact.Artifact{Path: path, Stage: "esd", Source: safe})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fresh" {
		t.Fatalf("content = %q", data)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale companion data survived: %v", err)
	}
	if got.WrittenAt.IsZero() {
		t.Fatal("expected WrittenAt to be set")
	}
	if len(rec.got) != 1 || rec.got[0].Path != path {
		t.Fatalf("recorder saw %+v", rec.got)
	}
}

func TestPersistCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "X_deburst.dim")
	store := artifact.NewStore(&fileWriter{})
	if _, err := store.Persist(context.Background(), product("p"), artifact.Artifact{Path: path}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file: %v", err)
	}
}

func TestPersistDirectoryFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	writer := &fileWriter{}
	store := artifact.NewStore(writer)
	_, err := store.Persist(context.Background(), product("p"), artifact.Artifact{Path: filepath.Join(blocker, "X.dim")})
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if writer.calls != 0 {
		t.Fatalf("writer called %d times", writer.calls)
	}
}

func TestPersistWriterErrorPassesThrough(t *testing.T) {
	cause := &engine.OperationError{Operation: "Write", Err: errors.New("disk full")}
	store := artifact.NewStore(&fileWriter{err: cause})
	_, err := store.Persist(context.Background(), product("p"), artifact.Artifact{Path: filepath.Join(t.TempDir(), "X.dim")})
	var opErr *engine.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
}

func TestPersistIgnoresRecorderFailure(t *testing.T) {
	store := artifact.NewStore(&fileWriter{}, artifact.WithRecorder(&recorder{err: errors.New("db locked")}))
	if _, err := store.Persist(context.Background(), product("p"), artifact.Artifact{Path: filepath.Join(t.TempDir(), "X.dim")}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
}
