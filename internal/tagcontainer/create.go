package tagcontainer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tagsync/internal/apierr"
	"tagsync/internal/model"
)

// CreateTag requests a new tag and returns it right away, pending, under a
// temporary id. The request runs in the background; use Tag.Wait or the
// callbacks among args to learn the outcome. See ParseCreateArgs for the
// accepted arguments.
//
// Operations on the returned tag are queued until the outcome is known.
// Argument errors are reported synchronously and no request is made.
func (c *Container) CreateTag(ctx context.Context, args ...any) (*Tag, error) {
	parsed, err := ParseCreateArgs(args...)
	if err == nil && parsed.Request == nil {
		err = apierr.New(apierr.InvalidArguments, "no tag creation strategy given (got %T)", args[0])
	}
	if err != nil {
		c.session.errors.Handle(err, parsed.Handler, parsed.OnError)
		return nil, err
	}

	t := c.newPendingTag()
	c.session.logger.Debug("Creating tag",
		zap.String("container", c.key()),
		zap.String("temp_id", t.ID()),
		zap.String("strategy", fmt.Sprintf("%T", parsed.Request)),
	)

	go c.create(ctx, t, parsed)
	return t, nil
}

func (c *Container) create(ctx context.Context, t *Tag, args CreateArgs) {
	err := c.createTag(ctx, t, args.Request)

	if err != nil && t.State() != StateRealized {
		c.kill(t, err)
	}
	t.settle(err)
	t.gate.Vacate()

	if err != nil {
		c.session.errors.Handle(err, args.Handler, args.OnError)
		return
	}
	if args.OnSuccess != nil {
		args.OnSuccess(t)
	}
}

func (c *Container) createTag(ctx context.Context, t *Tag, req CreateRequest) error {
	body, err := c.requestBody(ctx, req)
	if err != nil {
		return err
	}

	var resp model.NewTagResponse
	if err := c.session.client.Post(ctx, c.path("newtag"), body, &resp); err != nil {
		return fmt.Errorf("create tag in %s: %w", c.key(), err)
	}
	c.realize(t, resp.Tag)

	// A copied tag may bring nested tags along that the server created on
	// its own; only a full reload shows them. The reloaded data replaces
	// the creation response.
	if _, ok := req.(CopyRequest); ok {
		if err := c.SyncTags(ctx); err != nil {
			return fmt.Errorf("sync after copying %s: %w", resp.Tag.Name, err)
		}
		c.dropShadow(resp.Tag.Name)
	}
	return nil
}

// requestBody turns a request variant into the wire body. Keywords are
// resolved against the node's construct list.
func (c *Container) requestBody(ctx context.Context, req CreateRequest) (model.NewTagRequest, error) {
	switch r := req.(type) {
	case ConstructIDRequest:
		return model.NewTagRequest{ConstructID: r.ConstructID, MagicValue: r.MagicValue}, nil
	case KeywordRequest:
		construct, err := c.Node().ResolveKeyword(ctx, r.Keyword)
		if err != nil {
			return model.NewTagRequest{}, err
		}
		return model.NewTagRequest{ConstructID: construct.ID, MagicValue: r.MagicValue}, nil
	case CopyRequest:
		return model.NewTagRequest{CopyPageID: r.SourcePageID, CopyTagname: r.SourceTagname}, nil
	}
	return model.NewTagRequest{}, apierr.New(apierr.InvalidArguments, "unsupported creation request %T", req)
}
