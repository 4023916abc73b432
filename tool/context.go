package tool

import "context"

// CallInfo identifies the tool call a tool body is serving.
type CallInfo struct {
	Agent  string // Agent that requested the call
	CallID string // Originating tool call id
	Tool   string // Tool name
}

type callInfoKey struct{}

// WithCallInfo returns a context carrying info.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext returns the call info stored by the executor.
func CallInfoFromContext(ctx context.Context) (CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}
