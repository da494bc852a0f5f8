package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sarchain/internal/artifact"
	"sarchain/internal/ledger"
	"sarchain/internal/services"
	"sarchain/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	ok, err := store.BeginRun(ctx, "coregister")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if ok.ID == "" || ok.Status != ledger.StatusRunning {
		t.Fatalf("unexpected run %+v", ok)
	}
	if err := store.FinishRun(ctx, ok.ID, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	failed, err := store.BeginRun(ctx, "unwrap")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	fatal := services.Wrap(services.ErrExecution, "unwrap", "gpt", "exit code 1", nil)
	if err := store.FinishRun(ctx, failed.ID, fatal); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	advisory, err := store.BeginRun(ctx, "run")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	soft := services.Wrap(services.ErrDiscoverySkipped, "unwrap", "list", "empty", nil)
	if err := store.FinishRun(ctx, advisory.ID, soft); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	byID := map[string]ledger.Run{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	if len(byID) != 3 {
		t.Fatalf("runs = %d", len(byID))
	}
	if got := byID[ok.ID]; got.Status != ledger.StatusSucceeded || got.FinishedAt == nil || got.ErrorKind != "" {
		t.Fatalf("ok run = %+v", got)
	}
	if got := byID[failed.ID]; got.Status != ledger.StatusFailed || got.ErrorKind != services.ErrExecution.Error() {
		t.Fatalf("failed run = %+v", got)
	}
	if got := byID[advisory.ID]; got.Status != ledger.StatusSucceeded || got.ErrorKind != services.ErrDiscoverySkipped.Error() {
		t.Fatalf("advisory run = %+v", got)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("ListRuns(1) = %d, %v", len(limited), err)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	if err := store.FinishRun(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRecordArtifactLastWriteWins(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.BeginRun(ctx, "coregister")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.BeginRun(ctx, "coregister")
	if err != nil {
		t.Fatal(err)
	}

	path := "/out/A_esd.dim"
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Recorder(first.ID).RecordArtifact(ctx, artifact.Artifact{Path: path, Stage: "esd", Source: "/in/A.SAFE", WrittenAt: earlier}); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	if err := store.Recorder(second.ID).RecordArtifact(ctx, artifact.Artifact{Path: path, Stage: "esd", Source: "/in/A.SAFE", WrittenAt: earlier.Add(time.Hour)}); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	if err := store.RecordArtifact(ctx, first.ID, artifact.Artifact{Path: "/out/A_deburst.dim", Stage: "deburst", Source: "/in/A.SAFE"}); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}

	all, err := store.ListArtifacts(ctx, "")
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("artifacts = %d", len(all))
	}

	latest, err := store.ListArtifacts(ctx, second.ID)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(latest) != 1 || latest[0].Path != path || !latest[0].WrittenAt.Equal(earlier.Add(time.Hour)) {
		t.Fatalf("second run artifacts = %+v", latest)
	}
}

func TestListingsOrderWithinOneSecond(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "filter")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	base := time.Date(2022, 1, 10, 0, 0, 5, 0, time.UTC)
	for _, a := range []artifact.Artifact{
		{Path: "/out/a_older.dim", Stage: "multilook", Source: "/in/x.dim", WrittenAt: base},
		{Path: "/out/b_newer.dim", Stage: "goldstein", Source: "/in/x.dim", WrittenAt: base.Add(100 * time.Millisecond)},
	} {
		if err := store.RecordArtifact(ctx, run.ID, a); err != nil {
			t.Fatalf("RecordArtifact: %v", err)
		}
	}

	entries, err := store.ListArtifacts(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "/out/b_newer.dim" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if !entries[1].WrittenAt.Equal(base) {
		t.Fatalf("WrittenAt = %v, want %v", entries[1].WrittenAt, base)
	}
}

func TestRecordArtifactRequiresRun(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	err := store.RecordArtifact(context.Background(), "missing", artifact.Artifact{Path: "/out/x.dim", Stage: "esd", Source: "/in/x.SAFE"})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestOpenReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	first, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.BeginRun(context.Background(), "plan"); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	runs, err := second.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs after reopen = %d, %v", len(runs), err)
	}
	if _, err := ledger.Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
