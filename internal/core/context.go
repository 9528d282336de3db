package core

import "context"

type contextKey string

const (
	ctxKeyRequester contextKey = "export_requester"
	ctxKeyIPAddress contextKey = "export_ip"
)

// ContextWithRequester records who asked for an export. The name is printed
// as the generator on document appendices.
func ContextWithRequester(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyRequester, name)
}

// RequesterFromContext returns the requester, or "" if none was set.
func RequesterFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequester).(string); ok {
		return v
	}
	return ""
}

// ContextWithIPAddress adds the client address for job logs.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// IPAddressFromContext extracts the client address.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
