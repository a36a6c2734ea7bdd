package tagcontainer

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"tagsync/internal/apierr"
	"tagsync/internal/gate"
	"tagsync/internal/model"
)

// State is the lifecycle state of a Tag.
type State int

const (
	// StatePending: creation requested, server has not answered.
	StatePending State = iota
	// StateRealized: the tag carries its server id.
	StateRealized
	// StateDead: creation failed or the tag was deleted.
	StateDead
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRealized:
		return "realized"
	case StateDead:
		return "dead"
	}
	return "unknown"
}

// Tag is one construct instance attached to a Container. The same *Tag
// stays valid across realization; only its id changes.
type Tag struct {
	container *Container
	gate      gate.Gate

	done     chan struct{}
	doneOnce sync.Once

	mu          sync.RWMutex
	id          string
	serverID    int
	name        string
	constructID int
	active      bool
	state       State
	data        model.Tag
	err         error
}

func newPendingTag(c *Container, id string) *Tag {
	t := &Tag{
		container: c,
		id:        id,
		state:     StatePending,
		done:      make(chan struct{}),
	}
	t.gate.Procure()
	return t
}

func newRealizedTag(c *Container, data model.Tag) *Tag {
	t := &Tag{
		container:   c,
		id:          strconv.Itoa(data.ID),
		serverID:    data.ID,
		name:        data.Name,
		constructID: data.ConstructID,
		active:      data.Active,
		state:       StateRealized,
		data:        data.Clone(),
		done:        make(chan struct{}),
	}
	t.settle(nil)
	return t
}

// ID returns the current id: temporary until realized, then the server id.
func (t *Tag) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

// ServerID returns the server-assigned id once the tag is realized.
func (t *Tag) ServerID() (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.serverID, t.state == StateRealized
}

// Name returns the tag name, empty while pending.
func (t *Tag) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// ConstructID returns the construct the tag was created from.
func (t *Tag) ConstructID() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.constructID
}

// Active reports whether the tag is part of the saved container state.
func (t *Tag) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// State returns the lifecycle state.
func (t *Tag) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Err returns the error the tag was settled with, if any.
func (t *Tag) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Container returns the owning container.
func (t *Tag) Container() *Container {
	return t.container
}

// Wait blocks until the creation outcome is known and returns its error.
func (t *Tag) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Data returns the tag's current data, including unsaved edits. It waits
// for a pending tag to settle.
func (t *Tag) Data(ctx context.Context) (model.Tag, error) {
	return gated(ctx, t, func() (model.Tag, error) {
		return t.container.view(t), nil
	})
}

// SetProperty records an unsaved property edit. Container.Save sends it.
func (t *Tag) SetProperty(ctx context.Context, name string, prop model.Property) error {
	_, err := gated(ctx, t, func() (struct{}, error) {
		t.container.setShadowProperty(t, name, prop)
		return struct{}{}, nil
	})
	return err
}

// Remove marks the tag for deletion on the next Container.Save.
func (t *Tag) Remove(ctx context.Context) error {
	_, err := gated(ctx, t, func() (struct{}, error) {
		t.container.markDeleted(t.Name())
		return struct{}{}, nil
	})
	return err
}

type gatedResult[T any] struct {
	val T
	err error
}

// gated runs fn through the tag's gate, so it never observes a tag whose
// identity is being swapped. Dead tags fail with ErrTagDead.
func gated[T any](ctx context.Context, t *Tag, fn func() (T, error)) (T, error) {
	results := make(chan gatedResult[T], 1)
	t.gate.Do(func() {
		var r gatedResult[T]
		switch {
		case ctx.Err() != nil:
			r.err = ctx.Err()
		case t.State() == StateDead:
			r.err = t.deadError()
		default:
			r.val, r.err = fn()
		}
		results <- r
	})

	select {
	case r := <-results:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (t *Tag) deadError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &apierr.Error{
		Kind:    apierr.TagDead,
		Message: fmt.Sprintf("tag %s", t.id),
		Err:     t.err,
	}
}

// realize swaps in the server identity. Callers update the registries.
func (t *Tag) realize(data model.Tag) (oldID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	oldID = t.id
	t.id = strconv.Itoa(data.ID)
	t.serverID = data.ID
	t.name = data.Name
	t.constructID = data.ConstructID
	t.active = true
	t.state = StateRealized
	t.data = data.Clone()
	return oldID
}

func (t *Tag) kill(err error) (id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = StateDead
	t.active = false
	if t.err == nil {
		t.err = err
	}
	return t.id
}

func (t *Tag) refresh(data model.Tag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = data.Clone()
	t.active = data.Active
}

func (t *Tag) confirmed() model.Tag {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data.Clone()
}

// settle records the outcome and releases Wait.
func (t *Tag) settle(err error) {
	t.mu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
	t.doneOnce.Do(func() { close(t.done) })
}
