package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tagsync/internal/model"
)

// LoadContainer returns a page or template with its tags
func (h *Handler) LoadContainer(c echo.Context) error {
	kind, id, ok := containerParams(c)
	if !ok {
		return fail(c, codeInvalidData, "Invalid container")
	}

	container, err := h.store.Container(kind, id)
	if err != nil {
		return failStore(c, err)
	}

	resp := model.LoadResponse{Response: okInfo()}
	if kind == model.KindPage {
		resp.Page = container
	} else {
		resp.Template = container
	}
	return c.JSON(http.StatusOK, resp)
}

// SaveContainer applies tag edits and deletions
func (h *Handler) SaveContainer(c echo.Context) error {
	kind, id, ok := containerParams(c)
	if !ok {
		return fail(c, codeInvalidData, "Invalid container")
	}

	var req model.SaveRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, codeInvalidData, "Invalid request")
	}

	payload := req.Page
	if kind == model.KindTemplate {
		payload = req.Template
	}
	var tags map[string]model.Tag
	if payload != nil {
		if payload.ID != 0 && payload.ID != id {
			return fail(c, codeInvalidData, "Container id mismatch")
		}
		tags = payload.Tags
	}

	if err := h.store.Save(kind, id, tags, req.DeleteTags); err != nil {
		return failStore(c, err)
	}

	h.logger.Info("Container saved",
		zap.String("kind", string(kind)),
		zap.Int("container_id", id),
		zap.Int("updated_tags", len(tags)),
		zap.Strings("deleted_tags", req.DeleteTags),
	)
	return c.JSON(http.StatusOK, okInfo())
}

// ListConstructs returns the constructs of a node
func (h *Handler) ListConstructs(c echo.Context) error {
	nodeID, err := strconv.Atoi(c.QueryParam("nodeId"))
	if err != nil {
		return fail(c, codeInvalidData, "Invalid nodeId")
	}

	return c.JSON(http.StatusOK, model.ConstructListResponse{
		Response:   okInfo(),
		Constructs: h.store.Constructs(nodeID),
	})
}
