// Package tagcontainer implements the client side of CMS tag containers:
// pages and templates that own a named set of tags.
//
// Tags are created against the REST API and handed back to the caller
// before the server has answered. Such a tag carries a temporary id and a
// procured gate; once the server responds the tag is either realized (its
// id is swapped for the server id in place) or killed, and queued
// operations on it proceed.
package tagcontainer

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"tagsync/internal/identity"
	"tagsync/internal/model"
	"tagsync/internal/rest"
)

// Session owns the identity registries, the transport and the error
// handler for one client. Nothing in this package keeps global state.
type Session struct {
	client *rest.Client
	logger *zap.Logger
	errors *ErrorHandler
	nodeID int

	containers *identity.Registry[*Container]
	tags       *identity.Registry[*Tag]
	nodes      *identity.Registry[*Node]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorHook installs a hook that sees every error before the caller's
// error callback. Returning true suppresses the error.
func WithErrorHook(hook func(error) bool) Option {
	return func(s *Session) {
		s.errors.hook = hook
	}
}

// WithNodeID sets the node used for containers whose node is not known yet.
func WithNodeID(id int) Option {
	return func(s *Session) {
		s.nodeID = id
	}
}

// NewSession creates a session on top of client.
func NewSession(client *rest.Client, opts ...Option) *Session {
	s := &Session{
		client:     client,
		logger:     zap.NewNop(),
		errors:     &ErrorHandler{},
		nodeID:     1,
		containers: identity.NewRegistry[*Container](),
		tags:       identity.NewRegistry[*Tag](),
		nodes:      identity.NewRegistry[*Node](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errors.logger = s.logger
	return s
}

// Login authenticates and stores the session id on the transport.
func (s *Session) Login(ctx context.Context, login, password string) error {
	var resp model.LoginResponse
	err := s.client.Post(ctx, "/rest/auth/login", model.LoginRequest{Login: login, Password: password}, &resp)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.client.SetSID(resp.SID)
	s.logger.Info("Logged in", zap.String("login", login))
	return nil
}

// Page returns the one Container instance for the page with id.
func (s *Session) Page(id int) *Container {
	c, _ := s.Container(model.KindPage, id)
	return c
}

// Template returns the one Container instance for the template with id.
func (s *Session) Template(id int) *Container {
	c, _ := s.Container(model.KindTemplate, id)
	return c
}

// Container returns the one Container instance for kind and id.
func (s *Session) Container(kind model.Kind, id int) (*Container, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown container kind %q", kind)
	}
	return s.containers.GetOrCreate(containerKey(kind, id), func() *Container {
		return newContainer(s, kind, id)
	}), nil
}

// Node returns the one Node instance for id.
func (s *Session) Node(id int) *Node {
	return s.nodes.GetOrCreate(strconv.Itoa(id), func() *Node {
		return &Node{id: id, session: s}
	})
}

// LookupTag finds a tag by its current id, temporary or stable.
func (s *Session) LookupTag(id string) (*Tag, bool) {
	return s.tags.Get(id)
}

// Close drops every registry entry. Instances held by callers stay usable
// but are no longer returned by lookups.
func (s *Session) Close() {
	s.containers.Clear()
	s.tags.Clear()
	s.nodes.Clear()
}

func containerKey(kind model.Kind, id int) string {
	return string(kind) + ":" + strconv.Itoa(id)
}
