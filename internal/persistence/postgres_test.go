package persistence

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-automation/internal/config"
)

func TestApplyPoolConfig(t *testing.T) {
	poolCfg, err := pgxpool.ParseConfig("postgres://automation@localhost:5432/tickets")
	require.NoError(t, err)

	applyPoolConfig(poolCfg, config.PostgresConfig{
		MaxConns:           20,
		MinConns:           3,
		ConnMaxIdleSec:     15,
		ConnMaxLifeSec:     600,
		ApplicationName:    "ticket-automation",
		StatementTimeoutMS: 5000,
	})

	assert.Equal(t, int32(20), poolCfg.MaxConns)
	assert.Equal(t, int32(3), poolCfg.MinConns)
	assert.Equal(t, 15*time.Second, poolCfg.MaxConnIdleTime)
	assert.Equal(t, 10*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, "ticket-automation", poolCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "5000", poolCfg.ConnConfig.RuntimeParams["statement_timeout"])
}

func TestApplyPoolConfigKeepsDefaults(t *testing.T) {
	poolCfg, err := pgxpool.ParseConfig("postgres://automation@localhost:5432/tickets?pool_max_conns=7")
	require.NoError(t, err)

	applyPoolConfig(poolCfg, config.PostgresConfig{})

	assert.Equal(t, int32(7), poolCfg.MaxConns)
	_, ok := poolCfg.ConnConfig.RuntimeParams["statement_timeout"]
	assert.False(t, ok)
}
