package tagcontainer

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"tagsync/internal/config"
	"tagsync/internal/handler"
	"tagsync/internal/middleware"
	"tagsync/internal/model"
	"tagsync/internal/rest"
	"tagsync/internal/storage"
	"tagsync/internal/store"
)

// backend is a stub CMS with request counters, optional holds on tag
// creation and construct list requests, and a hook run before loads.
type backend struct {
	server *httptest.Server
	store  *store.Store

	newTagCalls    atomic.Int32
	newTagsCalls   atomic.Int32
	constructCalls atomic.Int32
	hold           atomic.Pointer[chan struct{}]
	listHold       atomic.Pointer[chan struct{}]
	listQuery      atomic.Pointer[string]
	beforeLoad     atomic.Pointer[func()]
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	st := store.New()
	st.AddConstruct(1, model.Construct{ID: 7, Keyword: "text", Name: "Text"})
	st.AddConstruct(1, model.Construct{ID: 8, Keyword: "teaser", Name: "Teaser"})
	st.PutContainer(model.KindPage, model.Container{
		ID:     10,
		Name:   "Home",
		NodeID: 1,
		Tags: map[string]model.Tag{
			"text1": {ID: 100, ConstructID: 7, Active: true, Properties: map[string]model.Property{
				"text": {Type: "RICHTEXT", StringValue: "hello"},
			}},
			"teaser1": {ID: 101, ConstructID: 8, Active: true, Properties: map[string]model.Property{
				"body":  {Type: "TAG", StringValue: "text1"},
				"title": {Type: "RICHTEXT", StringValue: "t"},
				"intro": {Type: "RICHTEXT", StringValue: "i"},
			}},
		},
	})
	st.PutContainer(model.KindPage, model.Container{ID: 11, Name: "Empty", NodeID: 1, Tags: map[string]model.Tag{}})
	st.PutContainer(model.KindTemplate, model.Container{ID: 5, Name: "Layout", NodeID: 1, Tags: map[string]model.Tag{
		"head1": {ID: 50, ConstructID: 7, Active: true},
	}})
	require.NoError(t, st.AddUser("editor", "secret"))

	b := &backend{store: st}

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			switch {
			case strings.Contains(path, "/newtags/"):
				b.newTagsCalls.Add(1)
			case strings.Contains(path, "/newtag/"):
				b.newTagCalls.Add(1)
			case strings.HasSuffix(path, "/construct/list"):
				b.constructCalls.Add(1)
				query := c.Request().URL.RawQuery
				b.listQuery.Store(&query)
				if hold := b.listHold.Load(); hold != nil {
					<-*hold
				}
				return next(c)
			case strings.Contains(path, "/load/"):
				if fn := b.beforeLoad.Load(); fn != nil {
					(*fn)()
				}
				return next(c)
			default:
				return next(c)
			}
			if hold := b.hold.Load(); hold != nil {
				<-*hold
			}
			return next(c)
		}
	})
	h := handler.NewHandler(st, storage.NewMemoryFileSystem(), middleware.NewSessions("test"), nil)
	h.Register(e)

	b.server = httptest.NewServer(e)
	t.Cleanup(b.server.Close)
	return b
}

// holdCreation makes tag creation requests block until the returned
// function is called.
func (b *backend) holdCreation() (release func()) {
	ch := make(chan struct{})
	b.hold.Store(&ch)
	return func() {
		b.hold.Store(nil)
		close(ch)
	}
}

// holdConstructList makes construct list requests block until the
// returned function is called.
func (b *backend) holdConstructList() (release func()) {
	ch := make(chan struct{})
	b.listHold.Store(&ch)
	return func() {
		b.listHold.Store(nil)
		close(ch)
	}
}

// onLoad runs fn on the server before every load request is answered.
func (b *backend) onLoad(fn func()) {
	b.beforeLoad.Store(&fn)
}

// editTag changes a property of a stored tag, the way the server may on its
// own after a copy.
func (b *backend) editTag(kind model.Kind, id int, name, prop string, value model.Property) error {
	c, err := b.store.Container(kind, id)
	if err != nil {
		return err
	}
	tag, ok := c.Tags[name]
	if !ok {
		return fmt.Errorf("no tag %q in %s %d", name, kind, id)
	}
	if tag.Properties == nil {
		tag.Properties = make(map[string]model.Property)
	}
	tag.Properties[prop] = value
	return b.store.Save(kind, id, map[string]model.Tag{name: tag}, nil)
}

func newTestSession(t *testing.T, b *backend, opts ...Option) *Session {
	t.Helper()
	return newSessionWith(t, b, config.BackendConfig{}, opts...)
}

// newSessionWith logs in with cfg on top of the test defaults.
func newSessionWith(t *testing.T, b *backend, cfg config.BackendConfig, opts ...Option) *Session {
	t.Helper()

	cfg.BaseURL = b.server.URL
	cfg.Timeout = "5s"
	cfg.RetryWait = "10ms"
	client, err := rest.NewClient(cfg, nil)
	require.NoError(t, err)

	s := NewSession(client, opts...)
	require.NoError(t, s.Login(testContext(t), "editor", "secret"))
	return s
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
