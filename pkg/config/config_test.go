package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.Scheduling.Grid)
	assert.Equal(t, 2*time.Minute, cfg.Scheduling.CacheTTL)
	assert.Equal(t, 2, cfg.Dispatch.Workers)
	assert.Equal(t, time.Second, cfg.Dispatch.RetryDelay)
	assert.False(t, cfg.Redis.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]interface{}{
		"STORE_DRIVER":    " Memory ",
		"SCHEDULING_GRID": "30m",
		"ALLOWED_ORIGINS": "https://a.example, ,https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.Grid)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestRejectsUnknownDriver(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]interface{}{"STORE_DRIVER": "sqlite"}))
	require.Error(t, err)
}

func TestRejectsNonPositiveGrid(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]interface{}{"SCHEDULING_GRID": "-5m"}))
	require.Error(t, err)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("garbage", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}
