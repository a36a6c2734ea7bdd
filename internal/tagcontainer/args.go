package tagcontainer

import (
	"math"

	"tagsync/internal/apierr"
)

// CreateRequest is one of KeywordRequest, ConstructIDRequest or CopyRequest.
type CreateRequest interface {
	isCreateRequest()
}

// KeywordRequest creates a tag from the construct with the given keyword.
type KeywordRequest struct {
	Keyword    string
	MagicValue string
}

// ConstructIDRequest creates a tag from a construct id.
type ConstructIDRequest struct {
	ConstructID int
	MagicValue  string
}

// CopyRequest copies an existing tag, including the tags nested in it.
type CopyRequest struct {
	SourcePageID  int
	SourceTagname string
}

func (KeywordRequest) isCreateRequest()     {}
func (ConstructIDRequest) isCreateRequest() {}
func (CopyRequest) isCreateRequest()        {}

// CreateOptions is the object form of the creation arguments. Exactly one
// strategy must be set: Keyword, ConstructID, or SourcePageID together
// with SourceTagname.
type CreateOptions struct {
	Keyword       string `json:"keyword,omitempty"`
	ConstructID   int    `json:"constructId,omitempty"`
	SourcePageID  int    `json:"sourcePageId,omitempty"`
	SourceTagname string `json:"sourceTagname,omitempty"`
	MagicValue    string `json:"magicValue,omitempty"`
}

// Request validates o and returns the matching request variant.
//
// Keyword and ConstructID weigh 2, SourcePageID and SourceTagname weigh 1
// each. Only a total of exactly 2 names a single complete strategy.
func (o CreateOptions) Request() (CreateRequest, error) {
	weight := 0
	if o.SourcePageID != 0 {
		weight++
	}
	if o.SourceTagname != "" {
		weight++
	}
	if o.Keyword != "" {
		weight += 2
	}
	if o.ConstructID != 0 {
		weight += 2
	}
	if weight != 2 {
		return nil, apierr.New(apierr.InvalidArguments,
			"exactly one of keyword, constructId or sourcePageId with sourceTagname is required")
	}

	switch {
	case o.Keyword != "":
		return KeywordRequest{Keyword: o.Keyword, MagicValue: o.MagicValue}, nil
	case o.ConstructID != 0:
		return ConstructIDRequest{ConstructID: o.ConstructID, MagicValue: o.MagicValue}, nil
	default:
		return CopyRequest{SourcePageID: o.SourcePageID, SourceTagname: o.SourceTagname}, nil
	}
}

// CreateArgs is the normalized form of the CreateTag arguments.
type CreateArgs struct {
	// Request is nil when the first argument named no strategy at all.
	Request CreateRequest

	OnSuccess func(*Tag)
	OnError   func(error)

	// Handler may suppress an error before it reaches OnError by returning true.
	Handler func(error) bool
}

// ParseCreateArgs normalizes the loosely typed CreateTag arguments.
//
// The first argument selects the strategy: a string is a keyword, an
// integer is a construct id, and a CreateOptions (or map with the same
// JSON keys) is validated by CreateOptions.Request. Any other type yields a
// nil Request. The remaining arguments are scanned for callbacks: the first
// callback found is the success callback and must be a func(*Tag); a
// func(error) found after it is the error callback. A func(error) bool is a
// per-call error handler.
//
// Callbacks are collected even when the strategy is invalid, so the
// argument error can be routed to them.
func ParseCreateArgs(args ...any) (CreateArgs, error) {
	var out CreateArgs
	if len(args) == 0 {
		return out, apierr.New(apierr.InvalidArguments, "at least one argument required")
	}

	cbErr := out.scanCallbacks(args[1:])

	var err error
	switch v := args[0].(type) {
	case string:
		out.Request = KeywordRequest{Keyword: v}
	case CreateOptions:
		out.Request, err = v.Request()
	case *CreateOptions:
		if v != nil {
			out.Request, err = v.Request()
		}
	case map[string]any:
		var opts CreateOptions
		opts, err = optionsFromMap(v)
		if err == nil {
			out.Request, err = opts.Request()
		}
	default:
		if id, ok := toInt(v); ok {
			out.Request = ConstructIDRequest{ConstructID: id}
		}
	}

	if err != nil {
		return out, err
	}
	return out, cbErr
}

func (a *CreateArgs) scanCallbacks(rest []any) error {
	for _, arg := range rest {
		switch fn := arg.(type) {
		case func(*Tag):
			if a.OnSuccess == nil {
				a.OnSuccess = fn
			}
		case func(error):
			if a.OnSuccess == nil {
				return apierr.New(apierr.InvalidArguments, "success callback must be a func(*Tag)")
			}
			if a.OnError == nil {
				a.OnError = fn
			}
		case func(error) bool:
			if a.Handler == nil {
				a.Handler = fn
			}
		}
	}
	return nil
}

func optionsFromMap(m map[string]any) (CreateOptions, error) {
	var opts CreateOptions
	for key, v := range m {
		var ok bool
		switch key {
		case "keyword":
			opts.Keyword, ok = v.(string)
		case "constructId":
			opts.ConstructID, ok = toInt(v)
		case "sourcePageId":
			opts.SourcePageID, ok = toInt(v)
		case "sourceTagname":
			opts.SourceTagname, ok = v.(string)
		case "magicValue":
			opts.MagicValue, ok = v.(string)
		default:
			ok = true
		}
		if !ok {
			return CreateOptions{}, apierr.New(apierr.InvalidArguments, "option %q has unexpected type %T", key, v)
		}
	}
	return opts, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
