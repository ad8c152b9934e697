package maps

import (
	"testing"

	"github.com/aspectgo/aspectgo/test/assert"
)

type clientConfig struct {
	Server   string
	PoolSize int
	Debug    bool
}

func TestMap2Struct(t *testing.T) {
	var config clientConfig
	err := Map2Struct(map[string]interface{}{
		"server":   "127.0.0.1:1883",
		"poolSize": 10,
		"debug":    true,
	}, &config)
	assert.Nil(t, err)
	assert.Equal(t, "127.0.0.1:1883", config.Server)
	assert.Equal(t, 10, config.PoolSize)
	assert.True(t, config.Debug)
}

func TestMap2StructPartial(t *testing.T) {
	config := clientConfig{Server: "default", PoolSize: 5}
	err := Map2Struct(map[string]interface{}{"poolSize": 20}, &config)
	assert.Nil(t, err)
	assert.Equal(t, "default", config.Server)
	assert.Equal(t, 20, config.PoolSize)
}
