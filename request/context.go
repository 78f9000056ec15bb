package request

import "context"

type contextKey int

const requestKey contextKey = iota

// WithRequest returns a new context with the given request attached.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestKey, req)
}

// FromContext retrieves the request from the context.
// Returns nil if no request is present.
func FromContext(ctx context.Context) *Request {
	req, _ := ctx.Value(requestKey).(*Request)
	return req
}
