package middlewares

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	clientIPKey
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// GetRequestID devuelve el request id inyectado por WithRequestID ("" si no hay).
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP devuelve la IP resuelta por WithClientIP ("" si no pasó por ahí).
func GetClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
