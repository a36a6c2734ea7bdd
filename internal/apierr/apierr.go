// Package apierr defines the error kinds surfaced by the tag-container layer.
package apierr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tagsync/internal/model"
)

// Kind classifies an Error.
type Kind string

const (
	// InvalidArguments: malformed or ambiguous creation arguments.
	InvalidArguments Kind = "INVALID_ARGUMENTS"
	// ConstructNotFound: a keyword did not resolve against the node's constructs.
	ConstructNotFound Kind = "CONSTRUCT_NOT_FOUND"
	// Transport: the HTTP round trip failed or returned an error status.
	Transport Kind = "TRANSPORT"
	// Response: the server answered with a non-OK response code.
	Response Kind = "RESPONSE"
	// TagDead: an operation was requested on a tag whose creation failed.
	TagDead Kind = "TAG_DEAD"
	// NotCreated: a batch was accepted but did not commit this entry.
	NotCreated Kind = "NOT_CREATED"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidArguments  = &Error{Kind: InvalidArguments}
	ErrConstructNotFound = &Error{Kind: ConstructNotFound}
	ErrTransport         = &Error{Kind: Transport}
	ErrResponse          = &Error{Kind: Response}
	ErrTagDead           = &Error{Kind: TagDead}
	ErrNotCreated        = &Error{Kind: NotCreated}
)

// Error is the single error type of the layer.
type Error struct {
	Kind    Kind
	Message string

	// Status is the HTTP status for Transport errors, 0 if no response arrived.
	Status int

	// Info is the envelope of a Response error.
	Info model.ResponseInfo

	// Constructs holds every construct known to the node for ConstructNotFound.
	Constructs map[string]model.Construct

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Kind == ConstructNotFound && len(e.Constructs) > 0 {
		keywords := make([]string, 0, len(e.Constructs))
		for k := range e.Constructs {
			keywords = append(keywords, k)
		}
		sort.Strings(keywords)
		fmt.Fprintf(&b, " (available: %s)", strings.Join(keywords, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// New returns an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
