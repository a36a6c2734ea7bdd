package tagcontainer

import (
	"go.uber.org/zap"

	"tagsync/internal/apierr"
)

// ErrorHandler is the single place errors of the layer are routed through.
//
// An error is offered, in order, to the per-call handler, the session hook
// and the caller's error callback. The first two may suppress it by
// returning true. An error nobody takes is logged.
type ErrorHandler struct {
	hook   func(error) bool
	logger *zap.Logger
}

// Handle routes err. custom and onError may be nil.
func (h *ErrorHandler) Handle(err error, custom func(error) bool, onError func(error)) {
	if err == nil {
		return
	}
	if custom != nil && custom(err) {
		h.logger.Debug("Error suppressed by call handler", zap.Error(err))
		return
	}
	if h.hook != nil && h.hook(err) {
		h.logger.Debug("Error suppressed by session hook", zap.Error(err))
		return
	}
	if onError != nil {
		onError(err)
		return
	}

	h.logger.Error("Unhandled tag container error",
		zap.String("kind", string(apierr.KindOf(err))),
		zap.Error(err),
	)
}
