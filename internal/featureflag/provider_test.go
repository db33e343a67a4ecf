package featureflag

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHash struct {
	values  map[string]map[string]string
	err     error
	lastKey string
}

func (f *fakeHash) HMGet(_ context.Context, key string, fields ...string) *redis.SliceCmd {
	f.lastKey = key
	if f.err != nil {
		return redis.NewSliceResult(nil, f.err)
	}
	out := make([]interface{}, len(fields))
	for i, field := range fields {
		if v, ok := f.values[key][field]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

const limitFlag = "ticket-auto-close-organization-limit"

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{limitFlag: 5}

	v, err := p.Int(context.Background(), limitFlag, "", 100)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = p.Int(context.Background(), "unknown", "", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, v)
}

func TestRedisProviderLookupOrder(t *testing.T) {
	hash := &fakeHash{values: map[string]map[string]string{
		"featureflags:" + limitFlag: {"default": "20", "org-1": "3"},
	}}
	p := NewRedisProvider(hash, "", zap.NewNop())

	tests := []struct {
		name  string
		scope string
		want  int
	}{
		{name: "scope override", scope: "org-1", want: 3},
		{name: "falls back to default field", scope: "org-2", want: 20},
		{name: "global lookup", scope: "", want: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := p.Int(context.Background(), limitFlag, tt.scope, 100)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
	assert.Equal(t, "featureflags:"+limitFlag, hash.lastKey)
}

func TestRedisProviderMissingHashUsesDefault(t *testing.T) {
	p := NewRedisProvider(&fakeHash{}, "flags", zap.NewNop())

	v, err := p.Int(context.Background(), limitFlag, "", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, v)
	assert.Equal(t, "flags:"+limitFlag, p.Key(limitFlag))
}

func TestRedisProviderErrors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		p := NewRedisProvider(&fakeHash{err: errors.New("dial tcp: refused")}, "", zap.NewNop())
		v, err := p.Int(context.Background(), limitFlag, "", 100)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidValue)
		assert.Equal(t, 100, v)
	})

	t.Run("not an integer", func(t *testing.T) {
		hash := &fakeHash{values: map[string]map[string]string{
			"featureflags:" + limitFlag: {"default": "lots"},
		}}
		p := NewRedisProvider(hash, "", zap.NewNop())
		_, err := p.Int(context.Background(), limitFlag, "", 100)
		assert.ErrorContains(t, err, "is not an integer")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}
