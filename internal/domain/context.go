package domain

import "context"

type ctxKey int

const accessTokenKey ctxKey = iota

// WithAccessToken returns a context carrying the caller's backend token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken returns the backend token stored by WithAccessToken.
func AccessToken(ctx context.Context) string {
	v, _ := ctx.Value(accessTokenKey).(string)
	return v
}
