// Package model defines the wire types exchanged with the CMS REST API.
package model

// ResponseCodeOK is the only response code that signals success.
const ResponseCodeOK = "OK"

// ResponseInfo is the success/failure marker embedded in every response.
type ResponseInfo struct {
	// ResponseCode is "OK" on success; anything else is an application failure.
	ResponseCode string `json:"responseCode"`

	// ResponseMessage is an optional human-readable explanation.
	ResponseMessage string `json:"responseMessage,omitempty"`
}

// OK reports whether the response code signals success.
func (i ResponseInfo) OK() bool {
	return i.ResponseCode == ResponseCodeOK
}

// Response is embedded by every response body.
type Response struct {
	ResponseInfo ResponseInfo `json:"responseInfo"`
}

// Info returns the envelope marker.
func (r *Response) Info() ResponseInfo {
	return r.ResponseInfo
}

// Envelope is implemented by every response type.
type Envelope interface {
	Info() ResponseInfo
}

// Kind is the type of a tag container.
type Kind string

const (
	KindPage     Kind = "page"
	KindTemplate Kind = "template"
)

// Valid reports whether k names a known container type.
func (k Kind) Valid() bool {
	return k == KindPage || k == KindTemplate
}

// Property is one part value of a tag.
type Property struct {
	ID           int    `json:"id,omitempty"`
	PartID       int    `json:"partId,omitempty"`
	Type         string `json:"type"`
	StringValue  string `json:"stringValue,omitempty"`
	BooleanValue bool   `json:"booleanValue,omitempty"`
}

// Tag is the server representation of a construct instance.
type Tag struct {
	ID          int                 `json:"id"`
	Name        string              `json:"name"`
	ConstructID int                 `json:"constructId"`
	Active      bool                `json:"active"`
	Type        string              `json:"type,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}

// Clone returns a deep copy of t.
func (t Tag) Clone() Tag {
	out := t
	if t.Properties != nil {
		out.Properties = make(map[string]Property, len(t.Properties))
		for k, v := range t.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// Construct is a reusable content-block type definition.
type Construct struct {
	ID      int    `json:"id"`
	Keyword string `json:"keyword"`
	Name    string `json:"name,omitempty"`
}

// Container is the part of a page or template this layer cares about.
type Container struct {
	ID     int            `json:"id"`
	Name   string         `json:"name,omitempty"`
	NodeID int            `json:"nodeId,omitempty"`
	Tags   map[string]Tag `json:"tags"`
}
