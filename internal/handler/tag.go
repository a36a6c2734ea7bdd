package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tagsync/internal/model"
)

// validNewTag checks that exactly one creation strategy is set.
func validNewTag(req model.NewTagRequest) bool {
	fromConstruct := req.ConstructID != 0 || req.Keyword != ""
	fromCopy := req.CopyPageID != 0 || req.CopyTagname != ""
	if fromCopy {
		return !fromConstruct && req.CopyPageID != 0 && req.CopyTagname != ""
	}
	return fromConstruct
}

// NewTag creates one tag in a page or template
func (h *Handler) NewTag(c echo.Context) error {
	kind, id, ok := containerParams(c)
	if !ok {
		return fail(c, codeInvalidData, "Invalid container")
	}

	var req model.NewTagRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, codeInvalidData, "Invalid request")
	}
	if !validNewTag(req) {
		return fail(c, codeInvalidData, "Either constructId or copyPageId and copyTagname required")
	}

	t, err := h.store.CreateTag(kind, id, req)
	if err != nil {
		return failStore(c, err)
	}

	h.logger.Info("Tag created",
		zap.String("kind", string(kind)),
		zap.Int("container_id", id),
		zap.String("tag", t.Name),
		zap.Int("tag_id", t.ID),
	)
	return c.JSON(http.StatusOK, model.NewTagResponse{Response: okInfo(), Tag: t})
}

// NewTags creates several tags. Entries the store cannot create are left
// out of the created map; the response is still OK.
func (h *Handler) NewTags(c echo.Context) error {
	kind, id, ok := containerParams(c)
	if !ok {
		return fail(c, codeInvalidData, "Invalid container")
	}

	var req model.NewTagsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, codeInvalidData, "Invalid request")
	}
	if len(req.Create) == 0 {
		return fail(c, codeInvalidData, "Nothing to create")
	}
	keys := make([]string, 0, len(req.Create))
	for key, r := range req.Create {
		if !validNewTag(r) {
			return fail(c, codeInvalidData, "Invalid entry "+strconv.Quote(key))
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tags, err := h.store.CreateTags(kind, id, req.Create)
	if err != nil {
		return failStore(c, err)
	}

	created := make(map[string]model.CreatedTag, len(tags))
	for key, t := range tags {
		created[key] = model.CreatedTag{Tag: t}
	}

	h.logger.Info("Tags created",
		zap.String("kind", string(kind)),
		zap.Int("container_id", id),
		zap.Strings("requested", keys),
		zap.Int("created", len(created)),
	)
	return c.JSON(http.StatusOK, model.NewTagsResponse{Response: okInfo(), Created: created})
}
