package handler

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SaveSnapshot writes the store to disk and prunes old snapshots.
func (h *Handler) SaveSnapshot() error {
	data, err := h.store.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to serialize store: %w", err)
	}

	name, err := h.fs.SaveSnapshot(data, time.Now())
	if err != nil {
		return err
	}
	if err := h.fs.PruneSnapshots(h.snapshotKeep); err != nil {
		h.logger.Warn("Failed to prune snapshots", zap.Error(err))
	}

	h.logger.Debug("Snapshot saved", zap.String("file", name), zap.Int("bytes", len(data)))
	return nil
}

// RestoreSnapshot loads the latest snapshot, falling back to seedFile
// when none exists. It reports whether anything was loaded.
func (h *Handler) RestoreSnapshot(seedFile string) (bool, error) {
	data, ok, err := h.fs.LoadLatestSnapshot()
	if err != nil {
		return false, err
	}
	source := "snapshot"
	if !ok {
		if seedFile == "" {
			return false, nil
		}
		data, err = os.ReadFile(seedFile)
		if err != nil {
			return false, fmt.Errorf("failed to read seed file: %w", err)
		}
		source = seedFile
	}

	if err := h.store.Restore(data); err != nil {
		return false, err
	}
	h.logger.Info("Store restored", zap.String("source", source))
	return true, nil
}

// StartAutoSnapshot schedules SaveSnapshot on a cron spec such as
// "@every 1m". An empty spec disables scheduling and returns nil.
func (h *Handler) StartAutoSnapshot(spec string) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := h.SaveSnapshot(); err != nil {
			h.logger.Error("Automatic snapshot failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}

	c.Start()
	h.logger.Info("Automatic snapshots scheduled", zap.String("schedule", spec))
	return c, nil
}
