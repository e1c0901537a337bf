package auth

import "context"

type ctxKey string

const (
	ctxKeySub      ctxKey = "sub"
	ctxKeyUsername ctxKey = "username"
)

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func withUsername(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyUsername, name)
}

// UsernameFromContext returns the login name carried by the token.
func UsernameFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyUsername).(string)
	return s
}
