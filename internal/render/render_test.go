package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlock(t *testing.T) {
	tests := []struct {
		name string
		tag  TagRender
		want bool
	}{
		{
			name: "no editables",
			tag:  TagRender{Editables: []Editable{}},
			want: true,
		},
		{
			name: "single editable on own element",
			tag:  TagRender{Element: "E1", Editables: []Editable{{Element: "E1"}}},
			want: false,
		},
		{
			name: "single editable on other element",
			tag:  TagRender{Element: "E2", Editables: []Editable{{Element: "E1"}}},
			want: true,
		},
		{
			name: "more than one editable",
			tag:  TagRender{Editables: []Editable{{}, {}}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlock(tt.tag))
		})
	}
}

func TestClassifyIsNotExclusive(t *testing.T) {
	tags := []TagRender{
		{TagName: "inline", Element: "GENTICS_1", Editables: []Editable{{Element: "GENTICS_1", PartName: "text"}}},
		{TagName: "teaser", Element: "GENTICS_2", Editables: []Editable{
			{Element: "GENTICS_2_a", PartName: "title"},
			{Element: "GENTICS_2_b", PartName: "body"},
		}},
		{TagName: "image", Element: "GENTICS_3"},
	}

	got := Classify(tags)

	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "teaser", got.Blocks[0].TagName)
	assert.Equal(t, "image", got.Blocks[1].TagName)

	require.Len(t, got.Editables, 3)
	assert.Equal(t, "inline", got.Editables[0].TagName)
	assert.Equal(t, "teaser", got.Editables[1].TagName)
	assert.Equal(t, "teaser", got.Editables[2].TagName)

	// the input slices are left untouched
	assert.Empty(t, tags[0].Editables[0].TagName)
}
