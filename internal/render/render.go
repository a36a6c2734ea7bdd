// Package render classifies the tags of a rendered page into blocks and
// editables.
package render

import "tagsync/internal/model"

// Editable is an inline-editable region inside a rendered tag.
type Editable struct {
	Element  string `json:"element"`
	PartName string `json:"partname,omitempty"`
	ReadOnly bool   `json:"readonly,omitempty"`

	// TagName is stamped by Classify with the owning tag's name.
	TagName string `json:"tagname,omitempty"`
}

// TagRender describes one rendered tag and the DOM element it occupies.
type TagRender struct {
	TagName   string     `json:"tagname"`
	TagID     int        `json:"tagid,omitempty"`
	Element   string     `json:"element"`
	Editables []Editable `json:"editables,omitempty"`
}

// PageRender is the response of page/render.
type PageRender struct {
	model.Response
	Content string      `json:"content"`
	Tags    []TagRender `json:"tags"`
}

// IsBlock reports whether t needs its own block wrapper. A tag is not a
// block only when it is a single editable rendered on the tag's own element.
func IsBlock(t TagRender) bool {
	return !(len(t.Editables) == 1 && t.Editables[0].Element == t.Element)
}

// Classification splits rendered tags. A tag can show up in both sets.
type Classification struct {
	Blocks    []TagRender
	Editables []Editable
}

// Classify returns the blocks and the flattened, tag-stamped editables.
func Classify(tags []TagRender) Classification {
	var out Classification
	for _, t := range tags {
		if IsBlock(t) {
			out.Blocks = append(out.Blocks, t)
		}
		for _, e := range t.Editables {
			e.TagName = t.TagName
			out.Editables = append(out.Editables, e)
		}
	}
	return out
}
