package auth

import (
	"context"

	authlib "github.com/dogukanozdemir/Fitmatch/pkg/auth"
)

// Claims mirrors the shared auth claims type for service convenience.
type Claims = authlib.Claims

// Config mirrors the shared auth config.
type Config = authlib.Config

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return authlib.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}
