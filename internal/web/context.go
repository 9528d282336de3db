package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// RequesterHeader names the caller printed as the document generator.
const RequesterHeader = "X-Requested-By"

// defaultRequester is used when the caller does not identify itself.
const defaultRequester = "CSR Export API"

// WithRequestMetadata adds the client IP and requester to ctx for job logs.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	requester := strings.TrimSpace(r.Header.Get(RequesterHeader))
	if requester == "" {
		requester = defaultRequester
	}
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithRequester(ctx, requester)
	return ctx
}

// clientIP returns the host part of RemoteAddr, already rewritten by
// TrustedRealIP for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
