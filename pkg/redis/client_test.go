package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-events/backend/config"
)

func TestOptions(t *testing.T) {
	opts := options(config.RedisConfig{Addr: "cache:6380", Password: "pw", DB: 2, PoolSize: 32})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 32, opts.PoolSize)
}

func TestOptions_ZeroPoolSizeLeftToDriver(t *testing.T) {
	opts := options(config.RedisConfig{Addr: "localhost:6379"})
	assert.Zero(t, opts.PoolSize)
}
