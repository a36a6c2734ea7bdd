package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagsync/internal/apierr"
	"tagsync/internal/config"
	"tagsync/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*config.BackendConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().Backend
	cfg.BaseURL = srv.URL
	cfg.RetryWait = "1ms"
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestPostSendsChannelParamsAndDecodes(t *testing.T) {
	var got model.NewTagRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/page/newtag/12", r.URL.Path)
		assert.Equal(t, "s1", r.URL.Query().Get("sid"))
		assert.Equal(t, "3", r.URL.Query().Get("nodeId"))
		assert.Contains(t, r.Header.Get("User-Agent"), "tagsync/")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(w, http.StatusOK, map[string]any{
			"responseInfo": map[string]string{"responseCode": "OK"},
			"tag":          map[string]any{"id": 42, "name": "content1", "constructId": 7},
		})
	}, func(cfg *config.BackendConfig) {
		cfg.SID = "s1"
		cfg.ChannelID = 3
	})

	var resp model.NewTagResponse
	err := c.Post(context.Background(), "/rest/page/newtag/12", model.NewTagRequest{ConstructID: 7}, &resp)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ConstructID)
	assert.Equal(t, 42, resp.Tag.ID)
	assert.Equal(t, "content1", resp.Tag.Name)
}

func TestNonOKResponseCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"responseInfo": map[string]string{"responseCode": "FAILURE", "responseMessage": "page is locked"},
		})
	})

	var resp model.NewTagResponse
	err := c.Post(context.Background(), "/rest/page/newtag/1", model.NewTagRequest{ConstructID: 1}, &resp)
	require.ErrorIs(t, err, apierr.ErrResponse)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "FAILURE", apiErr.Info.ResponseCode)
	assert.Contains(t, apiErr.Error(), "page is locked")
}

func TestHTTPErrorIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var resp model.NewTagResponse
	err := c.Post(context.Background(), "/rest/page/newtag/1", model.NewTagRequest{ConstructID: 1}, &resp)
	require.ErrorIs(t, err, apierr.ErrTransport)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	var resp model.NewTagsResponse
	err := c.Post(context.Background(), "/rest/page/newtags/1", model.NewTagsRequest{}, &resp)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetIsRetriedOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"responseInfo": map[string]string{"responseCode": "OK"},
			"constructs":   []map[string]any{{"id": 1, "keyword": "text"}},
		})
	})

	var resp model.ConstructListResponse
	err := c.Get(context.Background(), "/rest/construct/list", map[string]string{"nodeId": "1"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, resp.Constructs, 1)
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"responseInfo": map[string]string{"responseCode": "OK"}})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var resp model.LoadResponse
	err := c.Post(ctx, "/rest/page/load/1", nil, &resp)
	assert.ErrorIs(t, err, apierr.ErrTransport)
}
