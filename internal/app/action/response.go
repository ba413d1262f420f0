// Package action implements service actions: named domain operations that
// run inside a service context, are wrapped by entry and exit hooks, and
// report their outcome as a Response envelope.
//
// A Table maps action names to handlers and owns the interception logic.
// Service builds a Table for the standard create, update, delete, undelete
// and find actions of one entity type. CheckResponses merges the envelopes
// of several actions into one.
//
// Domain failures (validation, not found, persistence) are returned inside
// the envelope. Programmer errors (unknown action, missing model capability,
// inactive service context) are returned as the second return value.
package action

// Response is the result envelope of every action. A non-nil Err means the
// action failed, regardless of Data.
type Response struct {
	Err      error
	Data     any
	MetaData *MetaData

	// aggregate marks a response built by CheckResponses, whose Err and Data
	// are spliced when it is merged again.
	aggregate bool
}

// NewResponse returns an envelope with the given data and error and an
// empty metadata mapping.
func NewResponse(data any, err error) *Response {
	return &Response{Err: err, Data: data, MetaData: NewMetaData()}
}

// Ok returns a successful envelope carrying data.
func Ok(data any) *Response {
	return NewResponse(data, nil)
}

// Failure returns a failed envelope carrying err.
func Failure(err error) *Response {
	return NewResponse(nil, err)
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r != nil && r.Err != nil
}

// DataAs returns the response data as T. The second result is false when
// the response is nil, carries no data, or holds a different type.
func DataAs[T any](r *Response) (T, bool) {
	var zero T
	if r == nil || r.Data == nil {
		return zero, false
	}
	v, ok := r.Data.(T)
	return v, ok
}
