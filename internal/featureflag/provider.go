// Package featureflag resolves runtime tunables such as per-run caps.
package featureflag

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrInvalidValue is wrapped by lookups that find a stored value that is not an integer.
var ErrInvalidValue = errors.New("flag value is not an integer")

// DefaultField is the hash field consulted when no scope-specific override exists.
const DefaultField = "default"

// Provider looks up integer flags. scopeKey narrows the lookup, for example to one organization;
// an empty scopeKey reads the global value.
type Provider interface {
	Int(ctx context.Context, flag, scopeKey string, def int) (int, error)
}

// StaticProvider serves values from memory. Useful for tests and when Redis is not configured.
type StaticProvider map[string]int

func (p StaticProvider) Int(_ context.Context, flag, _ string, def int) (int, error) {
	if v, ok := p[flag]; ok {
		return v, nil
	}
	return def, nil
}

// HashReader is the slice of the redis client the provider needs.
type HashReader interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

// RedisProvider reads overrides from a hash per flag at <prefix>:<flag>.
type RedisProvider struct {
	client HashReader
	prefix string
	logger *zap.Logger
}

// NewRedisProvider builds a provider over client. prefix defaults to "featureflags".
func NewRedisProvider(client HashReader, prefix string, logger *zap.Logger) *RedisProvider {
	if prefix == "" {
		prefix = "featureflags"
	}
	return &RedisProvider{client: client, prefix: prefix, logger: logger}
}

// Key returns the hash holding flag.
func (p *RedisProvider) Key(flag string) string {
	return p.prefix + ":" + flag
}

// Int returns the scope override, then the hash default, then def.
// A value that is not an integer is an error rather than a silent fallback.
func (p *RedisProvider) Int(ctx context.Context, flag, scopeKey string, def int) (int, error) {
	fields := []string{DefaultField}
	if scopeKey != "" {
		fields = []string{scopeKey, DefaultField}
	}

	values, err := p.client.HMGet(ctx, p.Key(flag), fields...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return def, fmt.Errorf("read flag %s: %w", flag, err)
	}

	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return def, fmt.Errorf("flag %s field %s: %q: %w", flag, fields[i], s, ErrInvalidValue)
		}
		p.logger.Debug("feature flag override",
			zap.String("flag", flag), zap.String("field", fields[i]), zap.Int("value", n))
		return n, nil
	}
	return def, nil
}
