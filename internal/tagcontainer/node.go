package tagcontainer

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tagsync/internal/apierr"
	"tagsync/internal/model"
)

// Node is a CMS node (website). Its construct list is fetched once and
// kept in memory; keyword lookups never hit the network again.
type Node struct {
	id      int
	session *Session

	group      singleflight.Group
	mu         sync.RWMutex
	constructs map[string]model.Construct
}

// ID returns the node id.
func (n *Node) ID() int {
	return n.id
}

// Constructs returns the constructs of the node by keyword.
//
// Concurrent first calls share one request. The request is not bound to
// any single caller's cancellation; a caller whose ctx ends stops waiting
// while the others still get the result. On a channel-scoped session the
// channel decides which constructs are listed, not the node id.
func (n *Node) Constructs(ctx context.Context) (map[string]model.Construct, error) {
	n.mu.RLock()
	cached := n.constructs
	n.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := n.group.DoChan("constructs", func() (any, error) {
		var query map[string]string
		if n.session.client.ChannelID() == 0 {
			query = map[string]string{"nodeId": strconv.Itoa(n.id)}
		}

		var resp model.ConstructListResponse
		if err := n.session.client.Get(flightCtx, "/rest/construct/list", query, &resp); err != nil {
			return nil, fmt.Errorf("load constructs of node %d: %w", n.id, err)
		}

		byKeyword := make(map[string]model.Construct, len(resp.Constructs))
		for _, c := range resp.Constructs {
			byKeyword[c.Keyword] = c
		}

		n.mu.Lock()
		n.constructs = byKeyword
		n.mu.Unlock()

		n.session.logger.Debug("Loaded constructs",
			zap.Int("node_id", n.id),
			zap.Int("count", len(byKeyword)),
		)
		return byKeyword, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(map[string]model.Construct), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate forgets the cached construct list.
func (n *Node) Invalidate() {
	n.mu.Lock()
	n.constructs = nil
	n.mu.Unlock()
}

// ResolveKeyword returns the construct for keyword. An unknown keyword
// yields a ConstructNotFound error carrying every known construct.
func (n *Node) ResolveKeyword(ctx context.Context, keyword string) (model.Construct, error) {
	constructs, err := n.Constructs(ctx)
	if err != nil {
		return model.Construct{}, err
	}

	c, ok := constructs[keyword]
	if !ok {
		available := make(map[string]model.Construct, len(constructs))
		for k, v := range constructs {
			available[k] = v
		}
		return model.Construct{}, &apierr.Error{
			Kind:       apierr.ConstructNotFound,
			Message:    fmt.Sprintf("no construct with keyword %q in node %d", keyword, n.id),
			Constructs: available,
		}
	}
	return c, nil
}
