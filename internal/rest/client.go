// Package rest is the HTTP transport to the CMS REST API.
//
// Every call classifies its outcome into one of three results: success,
// a Transport error (network failure or HTTP error status) or a Response
// error (HTTP success but a non-OK response code in the envelope).
package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tagsync/internal/apierr"
	"tagsync/internal/config"
	"tagsync/internal/model"
	"tagsync/internal/version"
)

// Client talks to one CMS backend.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	sid       string
	channelID int
}

// NewClient creates a client for the configured backend.
// POST requests are never retried; GET requests follow cfg.RetryCount.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) (*Client, error) {
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	retryWait, err := cfg.GetRetryWait()
	if err != nil {
		return nil, fmt.Errorf("invalid retry wait: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(4 * retryWait).
		AddRetryCondition(retryIdempotent).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		sid:        cfg.SID,
		channelID:  cfg.ChannelID,
	}, nil
}

func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

// SetSID sets the session id sent with every request.
func (c *Client) SetSID(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sid = sid
}

// SID returns the current session id.
func (c *Client) SID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sid
}

// ChannelID returns the channel requests are scoped to, 0 for the master node.
func (c *Client) ChannelID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channelID
}

// Get issues a GET and decodes the envelope into result. Entries of query
// replace the session parameters of the same name.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, result model.Envelope) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// Post issues a POST with a JSON body and decodes the envelope into result.
func (c *Client) Post(ctx context.Context, path string, body any, result model.Envelope) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

func (c *Client) channelParams() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	params := make(map[string]string, 2)
	if c.sid != "" {
		params["sid"] = c.sid
	}
	if c.channelID != 0 {
		params["nodeId"] = strconv.Itoa(c.channelID)
	}
	return params
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any, result model.Envelope) error {
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(c.channelParams()).
		SetResult(result)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	c.logger.Debug("CMS request",
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("CMS request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &apierr.Error{Kind: apierr.Transport, Message: method + " " + path, Err: err}
	}

	if resp.IsError() {
		c.logger.Error("CMS returned HTTP error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return &apierr.Error{
			Kind:    apierr.Transport,
			Message: fmt.Sprintf("%s %s: %s", method, path, resp.Status()),
			Status:  resp.StatusCode(),
		}
	}

	info := result.Info()
	if !info.OK() {
		c.logger.Warn("CMS returned error response",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("response_code", info.ResponseCode),
			zap.String("response_message", info.ResponseMessage),
		)
		return &apierr.Error{
			Kind:    apierr.Response,
			Message: fmt.Sprintf("%s %s: %s", method, path, responseText(info)),
			Status:  resp.StatusCode(),
			Info:    info,
		}
	}

	return nil
}

func responseText(info model.ResponseInfo) string {
	if info.ResponseCode == "" {
		return "missing response code"
	}
	if info.ResponseMessage == "" {
		return info.ResponseCode
	}
	return info.ResponseCode + " " + info.ResponseMessage
}
