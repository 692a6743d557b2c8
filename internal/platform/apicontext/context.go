// Package apicontext holds typed context keys threaded through HTTP
// middleware and handlers.
package apicontext

import "context"

type contextKey string

var (
	requestIDKey      = contextKey("X-Request-Id")
	routeKey          = contextKey("X-Route")
	remoteIPKey       = contextKey("X-Remote-Ip")
	clientIdentityKey = contextKey("X-Client-Identity")
)

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey, route)
}

func GetRoute(ctx context.Context) string {
	v, _ := ctx.Value(routeKey).(string)
	return v
}

func SetRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey, ip)
}

func GetRemoteIP(ctx context.Context) string {
	v, _ := ctx.Value(remoteIPKey).(string)
	return v
}

// SetClientIdentity stores the opaque client-identity fingerprint used by
// the vote service's rate limiter (spec §4.7). The fingerprint itself is
// computed by middleware from remote address + user-agent; the core treats
// it as an opaque string.
func SetClientIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIdentityKey, id)
}

func GetClientIdentity(ctx context.Context) string {
	v, _ := ctx.Value(clientIdentityKey).(string)
	return v
}
