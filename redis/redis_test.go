package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDecodesFromJSON(t *testing.T) {
	var config RedisConfig
	require.NoError(t, json.Unmarshal([]byte(`{"host":"redis","port":6379,"password":"secret","namespace":"passport"}`), &config))
	require.Equal(t, RedisConfig{Host: "redis", Port: 6379, Password: "secret", Namespace: "passport"}, config)

	var sentinel RedisSentinelConfig
	require.NoError(t, json.Unmarshal([]byte(`{"sentinel_host":"sentinel","sentinel_port":26379,"master_name":"mymaster","sentinel_username":"watcher","namespace":"passport"}`), &sentinel))
	require.Equal(t, RedisSentinelConfig{
		SentinelHost:     "sentinel",
		SentinelPort:     26379,
		MasterName:       "mymaster",
		SentinelUsername: "watcher",
		Namespace:        "passport",
	}, sentinel)
}

func TestNewRedisClientFails(t *testing.T) {
	tests := []struct {
		name   string
		config RedisConfig
	}{
		{name: "empty config", config: RedisConfig{}},
		{name: "missing port", config: RedisConfig{Host: "localhost"}},
		{name: "unknown host", config: RedisConfig{Host: "invalid-redis-host-that-does-not-exist", Port: 6379}},
		{name: "invalid port", config: RedisConfig{Host: "localhost", Port: 99999}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewRedisClient(&tc.config)
			require.Error(t, err)
			require.Nil(t, client)
			require.Contains(t, err.Error(), "failed to connect to Redis")
		})
	}
}

func TestNewRedisSentinelClientFails(t *testing.T) {
	tests := []struct {
		name   string
		config RedisSentinelConfig
	}{
		{name: "empty master name", config: RedisSentinelConfig{SentinelHost: "localhost", SentinelPort: 26379}},
		{name: "unknown host", config: RedisSentinelConfig{SentinelHost: "invalid-sentinel-host-that-does-not-exist", SentinelPort: 26379, MasterName: "mymaster"}},
		{name: "invalid port", config: RedisSentinelConfig{SentinelHost: "localhost", SentinelPort: 99999, MasterName: "mymaster"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewRedisSentinelClient(&tc.config)
			require.Error(t, err)
			require.Nil(t, client)
			require.Contains(t, err.Error(), "failed to connect to Redis through Sentinel")
		})
	}
}
