// Package store holds the in-memory state of the stub CMS backend.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tagsync/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConstructNotFound = errors.New("construct not found")
	ErrInvalid           = errors.New("invalid request")
)

// Store is the stub backend's content. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	nextTagID  int
	containers map[string]*model.Container
	constructs map[int][]model.Construct // by node id
	users      map[string]string         // login -> password hash
}

// State is the serialized form of a Store.
type State struct {
	NextTagID  int                         `json:"nextTagId"`
	Pages      map[string]*model.Container `json:"pages"`
	Templates  map[string]*model.Container `json:"templates"`
	Constructs map[string][]model.Construct `json:"constructs"`
	Users      map[string]string           `json:"users"`
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nextTagID:  1,
		containers: make(map[string]*model.Container),
		constructs: make(map[int][]model.Construct),
		users:      make(map[string]string),
	}
}

func key(kind model.Kind, id int) string {
	return string(kind) + ":" + strconv.Itoa(id)
}

// AddConstruct registers a construct in a node.
func (s *Store) AddConstruct(nodeID int, c model.Construct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constructs[nodeID] = append(s.constructs[nodeID], c)
}

// Constructs lists the constructs of a node.
func (s *Store) Constructs(nodeID int) []model.Construct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Construct, len(s.constructs[nodeID]))
	copy(out, s.constructs[nodeID])
	return out
}

// PutContainer adds or replaces a page or template. Tag ids already in
// use advance the id counter.
func (s *Store) PutContainer(kind model.Kind, c model.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneContainer(&c)
	for name, t := range cp.Tags {
		t.Name = name
		cp.Tags[name] = t
		if t.ID >= s.nextTagID {
			s.nextTagID = t.ID + 1
		}
	}
	s.containers[key(kind, c.ID)] = cp
}

// Container returns a copy of a page or template.
func (s *Store) Container(kind model.Kind, id int) (*model.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.containers[key(kind, id)]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return cloneContainer(c), nil
}

// CreateTag creates one tag from a construct or by copying a tag of
// another page. Copies bring along nested tags (tags referenced by a
// property of type TAG).
func (s *Store) CreateTag(kind model.Kind, id int, req model.NewTagRequest) (model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTagLocked(kind, id, req)
}

// CreateTags creates several tags. Entries that fail are left out of the
// result; the others are committed.
func (s *Store) CreateTags(kind model.Kind, id int, reqs map[string]model.NewTagRequest) (map[string]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.containers[key(kind, id)]; !ok {
		return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}

	keys := make([]string, 0, len(reqs))
	for k := range reqs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	created := make(map[string]model.Tag, len(reqs))
	for _, k := range keys {
		t, err := s.createTagLocked(kind, id, reqs[k])
		if err != nil {
			continue
		}
		created[k] = t
	}
	return created, nil
}

func (s *Store) createTagLocked(kind model.Kind, id int, req model.NewTagRequest) (model.Tag, error) {
	c, ok := s.containers[key(kind, id)]
	if !ok {
		return model.Tag{}, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}

	switch {
	case req.CopyPageID != 0 && req.CopyTagname != "":
		return s.copyTagLocked(c, req.CopyPageID, req.CopyTagname)
	case req.ConstructID != 0 || req.Keyword != "":
		construct, ok := s.findConstructLocked(c.NodeID, req.ConstructID, req.Keyword)
		if !ok {
			return model.Tag{}, ErrConstructNotFound
		}
		t := model.Tag{
			ID:          s.nextTagID,
			Name:        uniqueName(c.Tags, construct.Keyword),
			ConstructID: construct.ID,
			Active:      true,
			Type:        "CONTENTTAG",
			Properties:  map[string]model.Property{},
		}
		if req.MagicValue != "" {
			t.Properties["text"] = model.Property{Type: "RICHTEXT", StringValue: req.MagicValue}
		}
		s.nextTagID++
		c.Tags[t.Name] = t
		return t.Clone(), nil
	}
	return model.Tag{}, ErrInvalid
}

func (s *Store) copyTagLocked(dst *model.Container, pageID int, tagname string) (model.Tag, error) {
	src, ok := s.containers[key(model.KindPage, pageID)]
	if !ok {
		return model.Tag{}, fmt.Errorf("page %d: %w", pageID, ErrNotFound)
	}
	orig, ok := src.Tags[tagname]
	if !ok {
		return model.Tag{}, fmt.Errorf("tag %q of page %d: %w", tagname, pageID, ErrNotFound)
	}

	top := s.cloneTagLocked(dst, orig)
	for prop, p := range top.Properties {
		if p.Type != "TAG" {
			continue
		}
		nested, ok := src.Tags[p.StringValue]
		if !ok {
			continue
		}
		child := s.cloneTagLocked(dst, nested)
		p.StringValue = child.Name
		top.Properties[prop] = p
	}
	dst.Tags[top.Name] = top
	return top.Clone(), nil
}

func (s *Store) cloneTagLocked(dst *model.Container, orig model.Tag) model.Tag {
	t := orig.Clone()
	t.ID = s.nextTagID
	s.nextTagID++
	t.Name = uniqueName(dst.Tags, baseName(orig.Name))
	t.Active = true
	dst.Tags[t.Name] = t
	return t
}

func (s *Store) findConstructLocked(nodeID, constructID int, keyword string) (model.Construct, bool) {
	for _, c := range s.constructs[nodeID] {
		if (constructID != 0 && c.ID == constructID) || (constructID == 0 && c.Keyword == keyword) {
			return c, true
		}
	}
	return model.Construct{}, false
}

// Save applies tag edits and deletions to a container. Edited tags must
// exist already.
func (s *Store) Save(kind model.Kind, id int, tags map[string]model.Tag, deleteTags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[key(kind, id)]
	if !ok {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	for name := range tags {
		if _, ok := c.Tags[name]; !ok {
			return fmt.Errorf("tag %q: %w", name, ErrNotFound)
		}
	}
	for name, t := range tags {
		existing := c.Tags[name]
		t.ID = existing.ID
		t.Name = name
		c.Tags[name] = t.Clone()
	}
	for _, name := range deleteTags {
		delete(c.Tags, name)
	}
	return nil
}

// Snapshot serializes the store.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		NextTagID:  s.nextTagID,
		Pages:      make(map[string]*model.Container),
		Templates:  make(map[string]*model.Container),
		Constructs: make(map[string][]model.Construct),
		Users:      s.users,
	}
	for k, c := range s.containers {
		id := strconv.Itoa(c.ID)
		if strings.HasPrefix(k, string(model.KindPage)+":") {
			state.Pages[id] = c
		} else {
			state.Templates[id] = c
		}
	}
	for nodeID, cs := range s.constructs {
		state.Constructs[strconv.Itoa(nodeID)] = cs
	}
	return json.MarshalIndent(state, "", "  ")
}

// Restore replaces the store content with a snapshot.
func (s *Store) Restore(data []byte) error {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	fresh := New()
	for _, c := range state.Pages {
		fresh.containers[key(model.KindPage, c.ID)] = c
	}
	for _, c := range state.Templates {
		fresh.containers[key(model.KindTemplate, c.ID)] = c
	}
	for nodeID, cs := range state.Constructs {
		id, err := strconv.Atoi(nodeID)
		if err != nil {
			return fmt.Errorf("invalid node id %q in snapshot", nodeID)
		}
		fresh.constructs[id] = cs
	}
	if state.Users != nil {
		fresh.users = state.Users
	}
	if state.NextTagID > 0 {
		fresh.nextTagID = state.NextTagID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTagID = fresh.nextTagID
	s.containers = fresh.containers
	s.constructs = fresh.constructs
	s.users = fresh.users
	return nil
}

func cloneContainer(c *model.Container) *model.Container {
	out := *c
	out.Tags = make(map[string]model.Tag, len(c.Tags))
	for name, t := range c.Tags {
		out.Tags[name] = t.Clone()
	}
	return &out
}

// uniqueName returns base followed by the smallest free number.
func uniqueName(tags map[string]model.Tag, base string) string {
	for n := 1; ; n++ {
		name := base + strconv.Itoa(n)
		if _, taken := tags[name]; !taken {
			return name
		}
	}
}

// baseName strips trailing digits: "content12" -> "content".
func baseName(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 {
		return name
	}
	return name[:i]
}
