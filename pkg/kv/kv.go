package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/pkg/config"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a small byte-oriented key-value contract shared by every backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl keeps the entry until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the configured backend and namespaces every key with cfg.KV.Prefix.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store Store
		err   error
	)
	switch cfg.KV.Driver {
	case "", config.KVBadger:
		store, err = NewBadger(cfg.KV.Path, logger)
	case config.KVRedis:
		client, rerr := DialRedis(ctx, cfg.Redis)
		if rerr != nil {
			return nil, fmt.Errorf("connect redis: %w", rerr)
		}
		store = NewRedis(client)
	case config.KVMemory:
		store = NewMemory()
	default:
		return nil, fmt.Errorf("unsupported kv driver %q", cfg.KV.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("kv store ready", zap.String("driver", cfg.KV.Driver), zap.String("prefix", cfg.KV.Prefix))
	return WithPrefix(store, cfg.KV.Prefix), nil
}

// GetJSON loads key and decodes it into dest.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, payload, ttl)
}

type prefixed struct {
	Store
	prefix string
}

// WithPrefix scopes a store to keys beginning with prefix. Keys returns unprefixed names.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{Store: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.Store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.Store.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.Store.Delete(ctx, p.prefix+key)
}

func (p *prefixed) DeletePrefix(ctx context.Context, prefix string) error {
	return p.Store.DeletePrefix(ctx, p.prefix+prefix)
}

func (p *prefixed) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.Store.Keys(ctx, p.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p.prefix)
	}
	return keys, nil
}
