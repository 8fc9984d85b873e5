// internal/vault/vault.go
//
// Vault client wrapper used as the backend token source.
//
// Context
// -------
//   - The hosted backend expects a server-held API token whenever a call is
//     made without a relayed user token.  Production keeps that token in a
//     KV-v2 secret rather than in conf/global.yaml.
//   - Wraps the HashiCorp Vault SDK with a per-key TTL cache and a background
//     token-renewal loop.  Safe for concurrent use.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, vault.Options{Renew: true}, log)   // boot
//  2. tok, err := cli.GetKV(ctx, "secret/barkhaus", "xano", 5*time.Minute)
//
// Notes
// -----
// • An empty Options.Address falls back to VAULT_ADDR and friends.
// • Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Options selects the Vault server and the renewal behaviour.
type Options struct {
	Address string // overrides VAULT_ADDR when set
	Token   string // overrides VAULT_TOKEN when set
	Renew   bool   // start the background renewal loop
}

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	mu    sync.RWMutex
	cache map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New builds a Client.  When opts.Renew is set a goroutine keeps the token
// alive until ctx is cancelled.
func New(ctx context.Context, opts Options, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	if opts.Address != "" {
		cfg.Address = opts.Address
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if opts.Token != "" {
		apiCli.SetToken(opts.Token)
	}

	c := &Client{api: apiCli, log: log, cache: make(map[string]cached)}
	if opts.Renew {
		go c.renewLoop(ctx)
	}
	return c, nil
}

// GetKV reads one key of a KV-v2 secret.  secretPath is "<mount>/<path>".
// With ttl > 0 the value is served from memory until it expires.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}
	id := secretPath + "#" + key

	if ttl > 0 {
		c.mu.RLock()
		cv, ok := c.cache[id]
		c.mu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel, _ := strings.Cut(secretPath, "/")
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	val, ok := sec.Data[key].(string)
	if !ok {
		return "", fmt.Errorf("vault: %s has no string key %q", secretPath, key)
	}

	if ttl > 0 {
		c.mu.Lock()
		c.cache[id] = cached{val: val, exp: time.Now().Add(ttl)}
		c.mu.Unlock()
	}
	return val, nil
}

// renewLoop keeps the client token alive.  Lookup failures back off
// exponentially; a non-renewable token is re-checked hourly.
func (c *Client) renewLoop(ctx context.Context) {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(15*time.Second),
		backoff.WithMaxInterval(5*time.Minute),
		backoff.WithMaxElapsedTime(0),
	), ctx)

	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil || sec == nil || sec.Auth == nil {
			c.log.Warnw("vault token renew failed", "err", err)
			sleep(ctx, bo.NextBackOff())
			continue
		}
		bo.Reset()
		if !sec.Auth.Renewable {
			c.log.Infow("vault token is not renewable")
			sleep(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			c.log.Warnw("vault lifetime watcher", "err", err)
			sleep(ctx, bo.NextBackOff())
			continue
		}
		c.watch(ctx, w)
	}
}

func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("vault token renewal stopped", "err", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
