// Package archiver mirrors recent run directories to remote object storage
// by shelling out to an external sync utility. It never deletes or modifies
// local data.
package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-collect-feeds/config"
)

// Syncer mirrors one local directory to a remote URI. Implementations must
// be idempotent: re-syncing unchanged content is a no-op on the remote side.
type Syncer interface {
	Sync(ctx context.Context, localDir, remoteURI string) error
}

// ExecSyncer shells out to an S3-compatible sync tool,
// e.g. "aws s3 sync <dir> <uri>".
type ExecSyncer struct {
	Command string
}

func (s *ExecSyncer) Sync(ctx context.Context, localDir, remoteURI string) error {
	cmd := exec.CommandContext(ctx, s.Command, "s3", "sync", localDir, remoteURI)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s s3 sync %s %s: %w", s.Command, localDir, remoteURI, err)
	}
	return nil
}

// dryRunSyncer reports what would be synced without touching the remote.
type dryRunSyncer struct{}

func (dryRunSyncer) Sync(ctx context.Context, localDir, remoteURI string) error {
	slog.Info("dry run: would sync",
		slog.String("dir", localDir),
		slog.String("uri", remoteURI),
	)
	return nil
}

// SyncOp is one planned mirror operation.
type SyncOp struct {
	LocalDir  string
	RemoteURI string
}

// Report summarizes one archiver pass.
type Report struct {
	Selected int
	Synced   int
	Failed   int
	Skipped  int
}

// Archiver selects run directories by age and pushes each through the syncer.
type Archiver struct {
	cfg    *config.ArchiverConfig
	syncer Syncer

	now func() time.Time
}

// New builds an archiver. A nil syncer gets the exec-based default.
func New(cfg *config.ArchiverConfig, syncer Syncer) *Archiver {
	if syncer == nil {
		syncer = &ExecSyncer{Command: cfg.SyncCommand}
	}
	return &Archiver{
		cfg:    cfg,
		syncer: syncer,
		now:    time.Now,
	}
}

// Plan scans the root and returns the sync operations a run would perform,
// in directory-listing order. The age threshold is inclusive: a directory
// whose modification time is exactly MaxAgeDays old is still selected.
func (a *Archiver) Plan() ([]SyncOp, int, error) {
	entries, err := os.ReadDir(a.cfg.Root)
	if err != nil {
		return nil, 0, fmt.Errorf("scan root %q: %w", a.cfg.Root, err)
	}

	var cutoff time.Time
	if a.cfg.AgeFilter {
		cutoff = a.now().AddDate(0, 0, -a.cfg.MaxAgeDays)
	}

	bucket := strings.TrimSuffix(a.cfg.BucketURI, "/")
	var ops []SyncOp
	skipped := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, 0, fmt.Errorf("stat %q: %w", entry.Name(), err)
		}
		if a.cfg.AgeFilter && info.ModTime().Before(cutoff) {
			skipped++
			continue
		}
		ops = append(ops, SyncOp{
			LocalDir:  filepath.Join(a.cfg.Root, entry.Name()),
			RemoteURI: bucket + "/" + entry.Name() + "/",
		})
	}
	return ops, skipped, nil
}

// Run plans and executes one archiver pass. A failed sync for one directory
// is logged and counted; the pass continues with the next directory.
func (a *Archiver) Run(ctx context.Context) (*Report, error) {
	ops, skipped, err := a.Plan()
	if err != nil {
		return nil, err
	}

	syncer := a.syncer
	if a.cfg.DryRun {
		syncer = dryRunSyncer{}
	}

	report := &Report{Selected: len(ops), Skipped: skipped}
	for _, op := range ops {
		if err := syncer.Sync(ctx, op.LocalDir, op.RemoteURI); err != nil {
			report.Failed++
			slog.Error("sync failed",
				slog.String("dir", op.LocalDir),
				slog.String("uri", op.RemoteURI),
				slog.Any("error", err),
			)
			continue
		}
		report.Synced++
		slog.Debug("synced",
			slog.String("dir", op.LocalDir),
			slog.String("uri", op.RemoteURI),
		)
	}

	slog.Info("archive pass finished",
		slog.Int("selected", report.Selected),
		slog.Int("synced", report.Synced),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		slog.Bool("dry_run", a.cfg.DryRun),
	)
	return report, nil
}
