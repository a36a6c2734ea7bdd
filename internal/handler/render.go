package handler

import (
	"html"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"tagsync/internal/model"
	"tagsync/internal/render"
)

const partTypeRichText = "RICHTEXT"

// RenderPage renders the active tags of a page. Every RICHTEXT property
// becomes an editable; a tag with a single one renders it on its own
// element.
func (h *Handler) RenderPage(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, codeInvalidData, "Invalid page id")
	}

	page, err := h.store.Container(model.KindPage, id)
	if err != nil {
		return failStore(c, err)
	}

	names := make([]string, 0, len(page.Tags))
	for name, t := range page.Tags {
		if t.Active {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var content strings.Builder
	tags := make([]render.TagRender, 0, len(names))
	for _, name := range names {
		tr := renderTag(page.Tags[name])
		tags = append(tags, tr)
		writeTag(&content, page.Tags[name], tr)
	}

	return c.JSON(http.StatusOK, render.PageRender{
		Response: okInfo(),
		Content:  content.String(),
		Tags:     tags,
	})
}

func renderTag(t model.Tag) render.TagRender {
	tr := render.TagRender{
		TagName: t.Name,
		TagID:   t.ID,
		Element: "GENTICS_" + t.Name,
	}

	parts := make([]string, 0, len(t.Properties))
	for part, p := range t.Properties {
		if p.Type == partTypeRichText {
			parts = append(parts, part)
		}
	}
	sort.Strings(parts)

	for _, part := range parts {
		element := "GENTICS_EDITABLE_" + t.Name + "_" + part
		if len(parts) == 1 {
			element = tr.Element
		}
		tr.Editables = append(tr.Editables, render.Editable{
			Element:  element,
			PartName: part,
		})
	}
	return tr
}

func writeTag(b *strings.Builder, t model.Tag, tr render.TagRender) {
	b.WriteString(`<div id="` + tr.Element + `">`)
	if render.IsBlock(tr) {
		for _, e := range tr.Editables {
			b.WriteString(`<div id="` + e.Element + `">`)
			b.WriteString(html.EscapeString(t.Properties[e.PartName].StringValue))
			b.WriteString("</div>")
		}
	} else {
		b.WriteString(html.EscapeString(t.Properties[tr.Editables[0].PartName].StringValue))
	}
	b.WriteString("</div>")
}
