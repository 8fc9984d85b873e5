package gateway

import (
	"context"
	"time"
)

// TokenSource yields the server-held backend credential used when no
// caller token is present.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential from configuration.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// SecretReader is the subset of *vault.Client used by VaultToken.
type SecretReader interface {
	GetKV(ctx context.Context, path, key string, ttl time.Duration) (string, error)
}

// VaultToken reads the credential from a KV-v2 secret and lets the reader
// cache it for TTL.
type VaultToken struct {
	Secrets SecretReader
	Path    string
	Key     string
	TTL     time.Duration
}

func (v VaultToken) Token(ctx context.Context) (string, error) {
	return v.Secrets.GetKV(ctx, v.Path, v.Key, v.TTL)
}
