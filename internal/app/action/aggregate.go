package action

import (
	"strconv"
	"strings"
)

// ResponsesMetaKey holds, in an aggregate's metadata, the metadata of each
// merged response in input order.
const ResponsesMetaKey = "responses"

// Errors is the ordered list of failures collected by CheckResponses.
type Errors []error

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(e)))
	b.WriteString(" errors: ")
	for i, err := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	return e
}

// CheckResponses merges several envelopes into one.
//
// Err is an Errors value holding every non-nil Err in input order, or nil
// when no response failed. Data is a []any with one slot per input response
// holding its Data (nil for a nil response or nil data).
//
// A response produced by CheckResponses is spliced rather than nested: its
// Err contributes each error it holds and its Data, when still a []any,
// contributes each slot. Merging [CheckResponses(A, B), C] therefore gives
// the same Err and Data as merging [A, B, C]. The splice reads the
// aggregate's current fields, so an Err or Data set on it after merging is
// carried forward.
func CheckResponses(responses ...*Response) *Response {
	var data []any
	for _, r := range responses {
		switch {
		case r == nil:
			data = append(data, nil)
		case r.aggregate:
			if slots, ok := r.Data.([]any); ok {
				data = append(data, slots...)
				continue
			}
			data = append(data, r.Data)
		default:
			data = append(data, r.Data)
		}
	}
	if data == nil {
		data = []any{}
	}

	resp := merge(responses, data)
	resp.aggregate = true
	return resp
}

// CheckResponsesWithData merges the errors of responses like CheckResponses
// but uses data verbatim as the merged Data.
func CheckResponsesWithData(responses []*Response, data any) *Response {
	return merge(responses, data)
}

func merge(responses []*Response, data any) *Response {
	var errs Errors
	metas := make([]*MetaData, 0, len(responses))
	for _, r := range responses {
		if r == nil {
			metas = append(metas, nil)
			continue
		}
		errs = appendErrors(errs, r.Err)
		metas = appendMetaData(metas, r)
	}

	resp := NewResponse(data, nil)
	if len(errs) > 0 {
		resp.Err = errs
	}
	resp.MetaData.Set(ResponsesMetaKey, metas)
	return resp
}

// appendErrors adds err to errs, flattening an Errors value so nested merges
// stay one level deep.
func appendErrors(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	if nested, ok := err.(Errors); ok {
		for _, e := range nested {
			errs = appendErrors(errs, e)
		}
		return errs
	}
	return append(errs, err)
}

// appendMetaData adds the metadata of r. An aggregate whose metadata holds
// nothing but its own responses list contributes that list; any other
// metadata is kept whole as one entry.
func appendMetaData(metas []*MetaData, r *Response) []*MetaData {
	if r.aggregate && r.MetaData.Len() == 1 {
		if v, ok := r.MetaData.Get(ResponsesMetaKey); ok {
			if inner, ok := v.([]*MetaData); ok {
				return append(metas, inner...)
			}
		}
	}
	return append(metas, r.MetaData)
}
