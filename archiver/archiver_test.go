package archiver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-collect-feeds/config"
)

type fakeSyncer struct {
	ops  []SyncOp
	fail map[string]error
}

func (f *fakeSyncer) Sync(ctx context.Context, localDir, remoteURI string) error {
	f.ops = append(f.ops, SyncOp{LocalDir: localDir, RemoteURI: remoteURI})
	if err, ok := f.fail[filepath.Base(localDir)]; ok {
		return err
	}
	return nil
}

// makeRunDir creates a subdirectory whose mtime is ageDays in the past
// relative to now.
func makeRunDir(t *testing.T, root string, name string, now time.Time, ageDays int) {
	t.Helper()

	path := filepath.Join(root, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	mtime := now.AddDate(0, 0, -ageDays)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

func archiverConfig(root string) *config.ArchiverConfig {
	cfg := config.DefaultArchiverConfig()
	cfg.Root = root
	cfg.BucketURI = "s3://dashboard-archive"
	return cfg
}

func TestAgeFiltering(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for _, age := range []int{0, 15, 29, 31, 45} {
		makeRunDir(t, root, fmt.Sprintf("dir-age-%02d", age), now, age)
	}

	cfg := archiverConfig(root)
	cfg.MaxAgeDays = 30
	syncer := &fakeSyncer{}
	a := New(cfg, syncer)
	a.now = func() time.Time { return now }

	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Selected != 3 || report.Skipped != 2 {
		t.Fatalf("selected=%d skipped=%d, want 3/2", report.Selected, report.Skipped)
	}

	want := map[string]bool{"dir-age-00": true, "dir-age-15": true, "dir-age-29": true}
	for _, op := range syncer.ops {
		if !want[filepath.Base(op.LocalDir)] {
			t.Fatalf("unexpected sync of %s", op.LocalDir)
		}
	}
	if len(syncer.ops) != 3 {
		t.Fatalf("got %d sync ops, want 3", len(syncer.ops))
	}
}

func TestAgeBoundaryInclusive(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	makeRunDir(t, root, "exactly-30", now, 30)

	cfg := archiverConfig(root)
	cfg.MaxAgeDays = 30
	syncer := &fakeSyncer{}
	a := New(cfg, syncer)
	a.now = func() time.Time { return now }

	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Selected != 1 {
		t.Fatalf("directory at exactly the threshold should be selected, report = %+v", report)
	}
}

func TestAgeFilterDisabledSyncsEverything(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for _, age := range []int{0, 100, 1000} {
		makeRunDir(t, root, fmt.Sprintf("dir-age-%04d", age), now, age)
	}

	cfg := archiverConfig(root)
	cfg.AgeFilter = false
	syncer := &fakeSyncer{}
	a := New(cfg, syncer)
	a.now = func() time.Time { return now }

	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Selected != 3 || report.Skipped != 0 {
		t.Fatalf("selected=%d skipped=%d, want 3/0", report.Selected, report.Skipped)
	}
}

func TestPlainFilesIgnored(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	makeRunDir(t, root, "20260830-120000", now, 0)
	if err := os.WriteFile(filepath.Join(root, "stray.log"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	syncer := &fakeSyncer{}
	a := New(archiverConfig(root), syncer)

	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(syncer.ops) != 1 {
		t.Fatalf("got %d sync ops, want 1 (files must be ignored)", len(syncer.ops))
	}
}

func TestRemoteURIFormat(t *testing.T) {
	root := t.TempDir()
	makeRunDir(t, root, "20260830-120000", time.Now(), 0)

	cfg := archiverConfig(root)
	cfg.BucketURI = "s3://dashboard-archive/"
	syncer := &fakeSyncer{}
	a := New(cfg, syncer)

	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "s3://dashboard-archive/20260830-120000/"
	if syncer.ops[0].RemoteURI != want {
		t.Fatalf("remote uri = %q, want %q", syncer.ops[0].RemoteURI, want)
	}
}

func TestSyncFailureContinues(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	for _, name := range []string{"run-a", "run-b", "run-c"} {
		makeRunDir(t, root, name, now, 0)
	}

	syncer := &fakeSyncer{fail: map[string]error{"run-a": errors.New("access denied")}}
	a := New(archiverConfig(root), syncer)

	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed != 1 || report.Synced != 2 {
		t.Fatalf("failed=%d synced=%d, want 1/2", report.Failed, report.Synced)
	}
	if len(syncer.ops) != 3 {
		t.Fatalf("all directories should be attempted, got %d ops", len(syncer.ops))
	}
}

func TestDryRunTouchesNothing(t *testing.T) {
	root := t.TempDir()
	makeRunDir(t, root, "20260830-120000", time.Now(), 0)

	cfg := archiverConfig(root)
	cfg.DryRun = true
	syncer := &fakeSyncer{}
	a := New(cfg, syncer)

	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(syncer.ops) != 0 {
		t.Fatalf("dry run must not invoke the real syncer, got %d ops", len(syncer.ops))
	}
	if report.Selected != 1 || report.Synced != 1 {
		t.Fatalf("dry run should still report intended operations, report = %+v", report)
	}
}

func TestRepeatedPlansIdentical(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for _, name := range []string{"20260829-000000", "20260830-000000"} {
		makeRunDir(t, root, name, now, 1)
	}

	a := New(archiverConfig(root), &fakeSyncer{})
	a.now = func() time.Time { return now }

	first, _, err := a.Plan()
	if err != nil {
		t.Fatalf("first plan: %v", err)
	}
	second, _, err := a.Plan()
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("plans differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("plan op %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
