package model

// NewTagRequest is the body of a single tag creation.
// Either ConstructID or the Copy fields are set, never both.
type NewTagRequest struct {
	ConstructID int    `json:"constructId,omitempty"`
	Keyword     string `json:"keyword,omitempty"`
	MagicValue  string `json:"magicValue,omitempty"`
	CopyPageID  int    `json:"copyPageId,omitempty"`
	CopyTagname string `json:"copyTagname,omitempty"`
}

// NewTagResponse is returned by newtag.
type NewTagResponse struct {
	Response
	Tag Tag `json:"tag"`
}

// NewTagsRequest is the body of a batch creation, keyed by caller-chosen keys.
type NewTagsRequest struct {
	Create map[string]NewTagRequest `json:"create"`
}

// CreatedTag is one entry of a batch creation response.
type CreatedTag struct {
	Tag Tag `json:"tag"`
}

// NewTagsResponse is returned by newtags. Created only holds committed keys.
type NewTagsResponse struct {
	Response
	Created map[string]CreatedTag `json:"created"`
}

// LoadResponse is returned by page/template load. Exactly one of the
// container fields is set, depending on the container kind.
type LoadResponse struct {
	Response
	Page     *Container `json:"page,omitempty"`
	Template *Container `json:"template,omitempty"`
}

// Container returns whichever container the response carries.
func (r *LoadResponse) Container() *Container {
	if r.Page != nil {
		return r.Page
	}
	return r.Template
}

// SaveRequest pushes shadow tags and deletions for a container.
type SaveRequest struct {
	Page       *Container `json:"page,omitempty"`
	Template   *Container `json:"template,omitempty"`
	DeleteTags []string   `json:"deleteTags,omitempty"`
}

// ConstructListResponse is returned by construct/list.
type ConstructListResponse struct {
	Response
	Constructs []Construct `json:"constructs"`
}

// LoginRequest authenticates against the backend.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse carries the session id used on every further request.
type LoginResponse struct {
	Response
	SID string `json:"sid"`
}
