package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tagsync/internal/model"
	"tagsync/internal/store"
)

// Response codes of the CMS envelope
const (
	codeInvalidData = "INVALIDDATA"
	codeNotFound    = "NOTFOUND"
	codeFailure     = "FAILURE"
)

func okInfo() model.Response {
	return model.Response{ResponseInfo: model.ResponseInfo{ResponseCode: model.ResponseCodeOK}}
}

// fail answers with HTTP 200 and a non-OK envelope, the way the CMS
// reports application errors.
func fail(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusOK, model.Response{ResponseInfo: model.ResponseInfo{
		ResponseCode:    code,
		ResponseMessage: msg,
	}})
}

// failStore maps store errors onto response codes.
func failStore(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrConstructNotFound):
		return fail(c, codeNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid):
		return fail(c, codeInvalidData, err.Error())
	default:
		return fail(c, codeFailure, err.Error())
	}
}

// containerParams reads the :kind and :id path parameters.
func containerParams(c echo.Context) (model.Kind, int, bool) {
	kind := model.Kind(c.Param("kind"))
	if !kind.Valid() {
		return "", 0, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return "", 0, false
	}
	return kind, id, true
}
