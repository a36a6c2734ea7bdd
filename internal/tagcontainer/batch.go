package tagcontainer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tagsync/internal/apierr"
	"tagsync/internal/model"
)

// BatchEntry is one tag of a batch creation.
type BatchEntry struct {
	Request CreateRequest

	// Data is the wire body sent for this entry.
	Data model.NewTagRequest

	// Tag is pending until the batch settles.
	Tag *Tag

	// Response is the server's answer for this entry, nil if not created.
	Response *model.CreatedTag
}

// Batch is a set of tags created in one round trip.
type Batch struct {
	Entries map[string]*BatchEntry

	// Response is the full server response, nil if the request failed.
	Response *model.NewTagsResponse

	done chan struct{}
	err  error
}

// Wait blocks until the batch has settled and returns its error.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Keys returns the entry keys in order.
func (b *Batch) Keys() []string {
	keys := make([]string, 0, len(b.Entries))
	for k := range b.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CreateTags creates several tags in one request. Every entry gets a
// pending Tag right away.
//
// If the server commits the batch, every key in its created map is
// realized. Keys it leaves out die with NotCreated. If the request fails
// in transport or with a non-OK code, every entry dies.
func (c *Container) CreateTags(ctx context.Context, reqs map[string]CreateRequest) (*Batch, error) {
	if len(reqs) == 0 {
		err := apierr.New(apierr.InvalidArguments, "at least one tag to create required")
		c.session.errors.Handle(err, nil, nil)
		return nil, err
	}
	for key, r := range reqs {
		if r == nil {
			err := apierr.New(apierr.InvalidArguments, "no creation strategy for %q", key)
			c.session.errors.Handle(err, nil, nil)
			return nil, err
		}
	}

	b := &Batch{
		Entries: make(map[string]*BatchEntry, len(reqs)),
		done:    make(chan struct{}),
	}
	for key, r := range reqs {
		b.Entries[key] = &BatchEntry{Request: r, Tag: c.newPendingTag()}
	}

	go c.createBatch(ctx, b)
	return b, nil
}

func (c *Container) createBatch(ctx context.Context, b *Batch) {
	body := model.NewTagsRequest{Create: make(map[string]model.NewTagRequest, len(b.Entries))}
	needsSync := false
	for key, e := range b.Entries {
		data, err := c.requestBody(ctx, e.Request)
		if err != nil {
			c.failBatch(b, fmt.Errorf("prepare %q: %w", key, err))
			return
		}
		e.Data = data
		body.Create[key] = data
		if _, ok := e.Request.(CopyRequest); ok {
			needsSync = true
		}
	}

	var resp model.NewTagsResponse
	if err := c.session.client.Post(ctx, c.path("newtags"), body, &resp); err != nil {
		c.failBatch(b, fmt.Errorf("create tags in %s: %w", c.key(), err))
		return
	}
	b.Response = &resp

	var errs error
	var realized []string
	for _, key := range b.Keys() {
		e := b.Entries[key]
		created, ok := resp.Created[key]
		if !ok {
			err := apierr.New(apierr.NotCreated, "server did not create %q in %s", key, c.key())
			c.kill(e.Tag, err)
			errs = multierr.Append(errs, err)
			continue
		}
		e.Response = &created
		c.realize(e.Tag, created.Tag)
		realized = append(realized, created.Tag.Name)
	}

	var syncErr error
	if needsSync {
		if err := c.SyncTags(ctx); err != nil {
			syncErr = fmt.Errorf("sync after batch copy: %w", err)
			errs = multierr.Append(errs, syncErr)
		} else {
			c.dropShadow(realized...)
		}
	}

	for _, e := range b.Entries {
		if e.Tag.State() == StateDead {
			e.Tag.settle(e.Tag.Err())
		} else {
			e.Tag.settle(syncErr)
		}
		e.Tag.gate.Vacate()
	}

	b.err = errs
	close(b.done)

	c.session.logger.Info("Batch tag creation finished",
		zap.String("container", c.key()),
		zap.Int("requested", len(b.Entries)),
		zap.Int("created", len(resp.Created)),
	)
	for _, err := range multierr.Errors(errs) {
		c.session.errors.Handle(err, nil, nil)
	}
}

// failBatch kills every entry of the original batch.
func (c *Container) failBatch(b *Batch, err error) {
	for _, e := range b.Entries {
		c.kill(e.Tag, err)
		e.Tag.settle(err)
		e.Tag.gate.Vacate()
	}
	b.err = err
	close(b.done)
	c.session.errors.Handle(err, nil, nil)
}
