package tagcontainer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tagsync/internal/model"
)

// SyncTags throws away the container's cached tag state and reloads it.
//
// The read goes through a separate, unregistered instance of the same
// container, so a response in flight never touches this instance until it
// is complete. Only the resulting tag map is copied over.
func (c *Container) SyncTags(ctx context.Context) error {
	c.mu.Lock()
	c.loaded = false
	c.byID = nil
	c.mu.Unlock()
	known := c.liveTags()

	fresh := newContainer(c.session, c.kind, c.id)
	if err := fresh.Load(ctx); err != nil {
		return fmt.Errorf("sync tags of %s: %w", c.key(), err)
	}

	fresh.mu.RLock()
	snapshot := model.Container{
		ID:     fresh.id,
		Name:   fresh.name,
		NodeID: fresh.nodeID,
		Tags:   fresh.tags,
	}
	fresh.mu.RUnlock()

	c.apply(&snapshot, known)

	c.session.logger.Debug("Tags synchronized",
		zap.String("container", c.key()),
		zap.Int("tags", len(snapshot.Tags)),
	)
	return nil
}
