package tagcontainer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"tagsync/internal/apierr"
	"tagsync/internal/identity"
	"tagsync/internal/model"
	"tagsync/internal/render"
)

// TagContainer is the role shared by pages and templates.
type TagContainer interface {
	Kind() model.Kind
	ID() int
	Load(ctx context.Context) error
	Tags() map[string]model.Tag
	Tag(name string) (*Tag, bool)
	TagByID(id int) (*Tag, bool)
	CreateTag(ctx context.Context, args ...any) (*Tag, error)
	CreateTags(ctx context.Context, reqs map[string]CreateRequest) (*Batch, error)
	SyncTags(ctx context.Context) error
	Save(ctx context.Context) error
}

var _ TagContainer = (*Container)(nil)

// Container is a page or template and the tags it owns.
type Container struct {
	session *Session
	kind    model.Kind
	id      int

	mu      sync.RWMutex
	loaded  bool
	name    string
	nodeID  int
	tags    map[string]model.Tag // confirmed by the server
	shadow  map[string]model.Tag // unsaved edits, sent on Save
	deleted map[string]struct{}
	byID    map[int]string // built on first TagByID
	live    map[string]*Tag
}

func newContainer(s *Session, kind model.Kind, id int) *Container {
	return &Container{
		session: s,
		kind:    kind,
		id:      id,
		tags:    make(map[string]model.Tag),
		shadow:  make(map[string]model.Tag),
		deleted: make(map[string]struct{}),
		live:    make(map[string]*Tag),
	}
}

// Kind returns page or template.
func (c *Container) Kind() model.Kind {
	return c.kind
}

// ID returns the container id.
func (c *Container) ID() int {
	return c.id
}

// Name returns the container name, known after Load.
func (c *Container) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Loaded reports whether tag data has been fetched from the server.
func (c *Container) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Dirty reports whether there are unsaved edits or deletions.
func (c *Container) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shadow) > 0 || len(c.deleted) > 0
}

// Node returns the node the container lives in.
func (c *Container) Node() *Node {
	c.mu.RLock()
	nodeID := c.nodeID
	c.mu.RUnlock()
	if nodeID == 0 {
		nodeID = c.session.nodeID
	}
	return c.session.Node(nodeID)
}

func (c *Container) key() string {
	return containerKey(c.kind, c.id)
}

func (c *Container) path(op string) string {
	return fmt.Sprintf("/rest/%s/%s/%d", c.kind, op, c.id)
}

// Load fetches the container's tags from the server. Tag instances whose
// tag is gone from the server die.
func (c *Container) Load(ctx context.Context) error {
	known := c.liveTags()

	var resp model.LoadResponse
	if err := c.session.client.Get(ctx, c.path("load"), nil, &resp); err != nil {
		return fmt.Errorf("load %s: %w", c.key(), err)
	}
	data := resp.Container()
	if data == nil {
		return &apierr.Error{Kind: apierr.Response, Message: fmt.Sprintf("load %s: response carries no %s", c.key(), c.kind)}
	}
	c.apply(data, known)
	return nil
}

func (c *Container) liveTags() map[string]*Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()

	live := make(map[string]*Tag, len(c.live))
	for name, t := range c.live {
		live[name] = t
	}
	return live
}

// apply replaces the confirmed state with data and refreshes live tags.
// Tags of known, the live instances from before the read, that data no
// longer holds are killed. Instances realized while the read was in flight
// are not in known and survive.
func (c *Container) apply(data *model.Container, known map[string]*Tag) {
	tags := make(map[string]model.Tag, len(data.Tags))
	for name, t := range data.Tags {
		t.Name = name
		tags[name] = t.Clone()
	}

	var vanished []*Tag
	c.mu.Lock()
	c.tags = tags
	c.name = data.Name
	if data.NodeID != 0 {
		c.nodeID = data.NodeID
	}
	c.loaded = true
	c.byID = nil
	for name, t := range known {
		if _, ok := tags[name]; ok || c.live[name] != t {
			continue
		}
		delete(c.live, name)
		delete(c.shadow, name)
		delete(c.deleted, name)
		vanished = append(vanished, t)
	}
	live := make(map[string]*Tag, len(c.live))
	for name, t := range c.live {
		live[name] = t
	}
	c.mu.Unlock()

	for name, t := range live {
		if d, ok := tags[name]; ok {
			t.refresh(d)
		}
	}
	for _, t := range vanished {
		c.kill(t, apierr.New(apierr.TagDead, "tag %s no longer exists in %s", t.Name(), c.key()))
	}
}

// Tags returns a copy of the confirmed tags by name.
func (c *Container) Tags() map[string]model.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]model.Tag, len(c.tags))
	for name, t := range c.tags {
		out[name] = t.Clone()
	}
	return out
}

// TagNames returns the confirmed tag names in order.
func (c *Container) TagNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tags))
	for name := range c.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tag returns the Tag instance for name. Repeated calls return the same
// instance.
func (c *Container) Tag(name string) (*Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.live[name]; ok {
		return t, true
	}
	data, ok := c.tags[name]
	if !ok {
		return nil, false
	}
	t := newRealizedTag(c, data)
	c.live[name] = t
	c.session.tags.Put(t.ID(), t)
	return t, true
}

// TagByID looks a tag up by server id through the reverse index.
func (c *Container) TagByID(id int) (*Tag, bool) {
	c.mu.Lock()
	if c.byID == nil {
		c.rebuildIndexLocked()
	}
	name, ok := c.byID[id]
	c.mu.Unlock()

	if !ok {
		return nil, false
	}
	return c.Tag(name)
}

func (c *Container) rebuildIndexLocked() {
	c.byID = make(map[int]string, len(c.tags))
	for name, t := range c.tags {
		c.byID[t.ID] = name
	}
}

// realize swaps a pending tag's temporary identity for the server one and
// merges its data into the shadow and confirmed maps.
func (c *Container) realize(t *Tag, data model.Tag) {
	data.Active = true
	oldID := t.realize(data)
	c.session.tags.Realize(oldID, t.ID())

	c.mu.Lock()
	c.shadow[data.Name] = data.Clone()
	c.tags[data.Name] = data.Clone()
	c.live[data.Name] = t
	if c.byID != nil {
		if _, known := c.byID[data.ID]; !known {
			c.rebuildIndexLocked()
		}
	}
	c.mu.Unlock()

	c.session.logger.Debug("Tag realized",
		zap.String("container", c.key()),
		zap.String("temp_id", oldID),
		zap.Int("tag_id", data.ID),
		zap.String("tag_name", data.Name),
	)
}

func (c *Container) kill(t *Tag, err error) {
	id := t.kill(err)
	c.session.tags.Remove(id)

	c.session.logger.Debug("Tag killed",
		zap.String("container", c.key()),
		zap.String("tag_id", id),
		zap.Error(err),
	)
}

// view returns the tag's data with unsaved edits applied.
func (c *Container) view(t *Tag) model.Tag {
	name := t.Name()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.shadow[name]; ok {
		return d.Clone()
	}
	if d, ok := c.tags[name]; ok {
		return d.Clone()
	}
	return t.confirmed()
}

func (c *Container) setShadowProperty(t *Tag, prop string, value model.Property) {
	name := t.Name()

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.shadow[name]
	if !ok {
		if confirmed, ok := c.tags[name]; ok {
			d = confirmed.Clone()
		} else {
			d = t.confirmed()
		}
	}
	if d.Properties == nil {
		d.Properties = make(map[string]model.Property)
	}
	d.Properties[prop] = value
	c.shadow[name] = d
}

// dropShadow forgets the unsaved data of names once a reload has confirmed
// them.
func (c *Container) dropShadow(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		delete(c.shadow, name)
	}
}

func (c *Container) markDeleted(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.shadow, name)
	c.deleted[name] = struct{}{}
}

// Save sends unsaved edits and deletions. On success the edits become
// confirmed data and deleted tags die.
func (c *Container) Save(ctx context.Context) error {
	c.mu.RLock()
	shadow := make(map[string]model.Tag, len(c.shadow))
	for name, t := range c.shadow {
		shadow[name] = t.Clone()
	}
	deleted := make([]string, 0, len(c.deleted))
	for name := range c.deleted {
		deleted = append(deleted, name)
	}
	c.mu.RUnlock()

	if len(shadow) == 0 && len(deleted) == 0 {
		return nil
	}
	sort.Strings(deleted)

	payload := &model.Container{ID: c.id, Tags: shadow}
	req := model.SaveRequest{DeleteTags: deleted}
	if c.kind == model.KindPage {
		req.Page = payload
	} else {
		req.Template = payload
	}

	var resp model.Response
	if err := c.session.client.Post(ctx, c.path("save"), req, &resp); err != nil {
		return fmt.Errorf("save %s: %w", c.key(), err)
	}

	var removed []*Tag
	c.mu.Lock()
	for name, t := range shadow {
		c.tags[name] = t
		delete(c.shadow, name)
	}
	for _, name := range deleted {
		delete(c.tags, name)
		delete(c.deleted, name)
		if t, ok := c.live[name]; ok {
			removed = append(removed, t)
			delete(c.live, name)
		}
	}
	c.byID = nil
	c.mu.Unlock()

	for _, t := range removed {
		c.kill(t, errors.New("tag "+t.Name()+" was deleted"))
	}

	c.session.logger.Info("Container saved",
		zap.String("container", c.key()),
		zap.Int("updated_tags", len(shadow)),
		zap.Int("deleted_tags", len(deleted)),
	)
	return nil
}

// Rendered is a rendered page split into blocks and editables.
type Rendered struct {
	Content string
	render.Classification
}

// Render fetches the rendered page and classifies its tags.
func (c *Container) Render(ctx context.Context) (*Rendered, error) {
	if c.kind != model.KindPage {
		return nil, apierr.New(apierr.InvalidArguments, "only pages can be rendered, not %s", c.kind)
	}

	var resp render.PageRender
	if err := c.session.client.Get(ctx, c.path("render"), nil, &resp); err != nil {
		return nil, fmt.Errorf("render %s: %w", c.key(), err)
	}
	return &Rendered{
		Content:        resp.Content,
		Classification: render.Classify(resp.Tags),
	}, nil
}

// newPendingTag creates a tag under a fresh temporary id and procures it.
func (c *Container) newPendingTag() *Tag {
	t := newPendingTag(c, identity.NewTempID())
	c.session.tags.PutTemp(t.ID(), t)
	return t
}

func (c *Container) String() string {
	return c.key()
}
