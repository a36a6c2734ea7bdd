package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tagsync/internal/model"
	"tagsync/internal/store"
)

// Login authenticates a user and returns a session id
func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, codeInvalidData, "Invalid request")
	}

	if err := h.store.Authenticate(req.Login, req.Password); err != nil {
		if errors.Is(err, store.ErrBadCredentials) {
			h.logger.Warn("Login rejected", zap.String("login", req.Login))
			return c.JSON(http.StatusUnauthorized, model.Response{ResponseInfo: model.ResponseInfo{
				ResponseCode:    "AUTHREQUIRED",
				ResponseMessage: "Invalid credentials",
			}})
		}
		return fail(c, codeFailure, err.Error())
	}

	sid, err := h.sessions.Issue(req.Login)
	if err != nil {
		return fail(c, codeFailure, "Failed to generate session")
	}

	return c.JSON(http.StatusOK, model.LoginResponse{Response: okInfo(), SID: sid})
}
