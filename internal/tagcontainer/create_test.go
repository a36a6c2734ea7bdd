package tagcontainer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagsync/internal/apierr"
	"tagsync/internal/identity"
	"tagsync/internal/model"
)

func TestCreateTagByConstructID(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)
	page := s.Page(11)

	release := b.holdCreation()
	tag, err := page.CreateTag(ctx, 7)
	require.NoError(t, err)

	tempID := tag.ID()
	assert.True(t, identity.IsTemp(tempID))
	assert.Equal(t, StatePending, tag.State())
	found, ok := s.LookupTag(tempID)
	require.True(t, ok)
	assert.Same(t, tag, found)

	// Queued behind the creation.
	dataCh := make(chan model.Tag, 1)
	go func() {
		d, err := tag.Data(ctx)
		assert.NoError(t, err)
		dataCh <- d
	}()
	require.Eventually(t, func() bool { return tag.gate.Pending() == 1 }, time.Second, 5*time.Millisecond)

	release()
	require.NoError(t, tag.Wait(ctx))

	data := <-dataCh
	assert.Equal(t, "text1", data.Name)
	assert.Equal(t, 7, data.ConstructID)

	serverID, ok := tag.ServerID()
	require.True(t, ok)
	assert.Equal(t, StateRealized, tag.State())
	assert.Equal(t, "text1", tag.Name())
	assert.False(t, identity.IsTemp(tag.ID()))

	_, ok = s.LookupTag(tempID)
	assert.False(t, ok)
	found, ok = s.LookupTag(tag.ID())
	require.True(t, ok)
	assert.Same(t, tag, found)

	tags := page.Tags()
	require.Contains(t, tags, "text1")
	assert.Equal(t, serverID, tags["text1"].ID)

	same, ok := page.Tag("text1")
	require.True(t, ok)
	assert.Same(t, tag, same)
	assert.EqualValues(t, 1, b.newTagCalls.Load())
}

func TestCreateTagByKeyword(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)

	var got *Tag
	var wg sync.WaitGroup
	wg.Add(1)
	tag, err := s.Page(11).CreateTag(ctx, map[string]any{"keyword": "text", "magicValue": "hi"}, func(t *Tag) {
		got = t
		wg.Done()
	})
	require.NoError(t, err)
	wg.Wait()

	assert.Same(t, tag, got)
	data, err := tag.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, data.ConstructID)
	assert.Equal(t, "hi", data.Properties["text"].StringValue)
}

func TestCreateTagUnknownKeyword(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)

	errCh := make(chan error, 1)
	tag, err := s.Page(11).CreateTag(ctx, "gallery", func(*Tag) {
		t.Error("success callback called")
	}, func(err error) {
		errCh <- err
	})
	require.NoError(t, err)

	err = tag.Wait(ctx)
	require.ErrorIs(t, err, apierr.ErrConstructNotFound)

	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Constructs, "text")
	assert.Contains(t, apiErr.Constructs, "teaser")
	assert.Contains(t, err.Error(), "available: teaser, text")

	assert.ErrorIs(t, <-errCh, apierr.ErrConstructNotFound)
	assert.Equal(t, StateDead, tag.State())
	assert.Zero(t, b.newTagCalls.Load())

	_, err = tag.Data(ctx)
	assert.ErrorIs(t, err, apierr.ErrTagDead)
	assert.ErrorIs(t, err, apierr.ErrConstructNotFound)
}

func TestCreateTagInvalidArguments(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)
	page := s.Page(11)

	var routed []error
	onError := func(err error) { routed = append(routed, err) }

	tests := []struct {
		name string
		args []any
	}{
		{"no strategy type", []any{struct{}{}, func(*Tag) {}, onError}},
		{"ambiguous options", []any{CreateOptions{Keyword: "text", ConstructID: 7}, func(*Tag) {}, onError}},
		{"incomplete copy", []any{map[string]any{"sourcePageId": 10}, func(*Tag) {}, onError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := page.CreateTag(ctx, tt.args...)
			assert.Nil(t, tag)
			assert.ErrorIs(t, err, apierr.ErrInvalidArguments)
		})
	}

	_, err := page.CreateTag(ctx)
	assert.ErrorIs(t, err, apierr.ErrInvalidArguments)

	assert.Len(t, routed, len(tests))
	assert.Zero(t, b.newTagCalls.Load())
}

func TestCreateTagCopySyncsNestedTags(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)
	page := s.Page(11)

	tag, err := page.CreateTag(ctx, CreateOptions{SourcePageID: 10, SourceTagname: "teaser1"})
	require.NoError(t, err)
	require.NoError(t, tag.Wait(ctx))

	assert.True(t, page.Loaded())
	tags := page.Tags()
	assert.Contains(t, tags, "teaser1")
	assert.Contains(t, tags, "text1", "nested tag is picked up by the sync")
	assert.Equal(t, "text1", tags["teaser1"].Properties["body"].StringValue)

	assert.Same(t, page, s.Page(11))
	same, ok := page.Tag("teaser1")
	require.True(t, ok)
	assert.Same(t, tag, same)
}

func TestCreateTagCopyHandsBackSyncedData(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)
	page := s.Page(11)

	// The server rewrites the copy after answering the creation request.
	fixed := model.Property{Type: "TAG", StringValue: "text1-fixed"}
	b.onLoad(func() { _ = b.editTag(model.KindPage, 11, "teaser1", "body", fixed) })

	fromCallback := make(chan model.Tag, 1)
	tag, err := page.CreateTag(ctx, CreateOptions{SourcePageID: 10, SourceTagname: "teaser1"}, func(tag *Tag) {
		d, err := tag.Data(ctx)
		assert.NoError(t, err)
		fromCallback <- d
	})
	require.NoError(t, err)
	require.NoError(t, tag.Wait(ctx))

	assert.Equal(t, "text1-fixed", (<-fromCallback).Properties["body"].StringValue)
	data, err := tag.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text1-fixed", data.Properties["body"].StringValue)

	assert.False(t, page.Dirty())
	require.NoError(t, page.Save(ctx))
	stored, err := b.store.Container(model.KindPage, 11)
	require.NoError(t, err)
	assert.Equal(t, "text1-fixed", stored.Tags["teaser1"].Properties["body"].StringValue)
}

func TestCreateTagServerFailureKillsTag(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)

	tag, err := s.Page(999).CreateTag(ctx, 7)
	require.NoError(t, err)
	tempID := tag.ID()

	err = tag.Wait(ctx)
	require.ErrorIs(t, err, apierr.ErrResponse)

	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NOTFOUND", apiErr.Info.ResponseCode)

	assert.Equal(t, StateDead, tag.State())
	_, ok := s.LookupTag(tempID)
	assert.False(t, ok)

	assert.ErrorIs(t, tag.SetProperty(ctx, "text", model.Property{Type: "RICHTEXT"}), apierr.ErrTagDead)
	assert.ErrorIs(t, tag.Remove(ctx), apierr.ErrTagDead)
}

func TestCreateTagTransportFailure(t *testing.T) {
	b := newBackend(t)
	s := newTestSession(t, b)
	ctx := testContext(t)
	b.server.Close()

	tag, err := s.Page(11).CreateTag(ctx, 7)
	require.NoError(t, err)

	err = tag.Wait(ctx)
	assert.ErrorIs(t, err, apierr.ErrTransport)
	assert.Equal(t, StateDead, tag.State())
}

func TestErrorRouting(t *testing.T) {
	b := newBackend(t)
	ctx := testContext(t)

	t.Run("session hook suppresses", func(t *testing.T) {
		var hooked []error
		s := newTestSession(t, b, WithErrorHook(func(err error) bool {
			hooked = append(hooked, err)
			return true
		}))

		called := false
		_, err := s.Page(11).CreateTag(ctx, CreateOptions{}, func(*Tag) {}, func(error) { called = true })
		assert.Error(t, err)
		assert.Len(t, hooked, 1)
		assert.False(t, called)
	})

	t.Run("call handler runs before hook", func(t *testing.T) {
		hooked := false
		s := newTestSession(t, b, WithErrorHook(func(error) bool {
			hooked = true
			return true
		}))

		handled := false
		_, err := s.Page(11).CreateTag(ctx, CreateOptions{}, func(error) bool {
			handled = true
			return true
		})
		assert.Error(t, err)
		assert.True(t, handled)
		assert.False(t, hooked)
	})

	t.Run("hook declines, callback receives", func(t *testing.T) {
		s := newTestSession(t, b, WithErrorHook(func(error) bool { return false }))

		var got error
		_, err := s.Page(11).CreateTag(ctx, CreateOptions{}, func(*Tag) {}, func(err error) { got = err })
		assert.Error(t, err)
		assert.ErrorIs(t, got, apierr.ErrInvalidArguments)
	})
}
