package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	c := LoadFrom(env(nil))
	assert.Equal(t, Default(), c)
	assert.Empty(t, c.RedisAddr)
	assert.Empty(t, c.NATSURL)
}

func TestLoadFrom_Overrides(t *testing.T) {
	c := LoadFrom(env(map[string]string{
		"LISTEN_ADDR":          ":9000",
		"WORKER_POOL_SIZE":     "32",
		"MAX_CONNECTIONS":      "500",
		"READ_TIMEOUT":         "3s",
		"WRITE_TIMEOUT":        "250ms",
		"OUTBOX_SIZE":          "16",
		"HEARTBEAT_INTERVAL":   "15s",
		"HEARTBEAT_TIMEOUT":    "5s",
		"MAX_MESSAGE_CHARS":    "280",
		"REPORT_BAN_THRESHOLD": "5",
		"RECENT_REPORTS":       "25",
		"REDIS_ADDR":           " localhost:6379 ",
		"NATS_URL":             "nats://nats:4222",
		"CORS_ORIGINS":         "https://a.example, ,https://b.example",
	}))

	assert.Equal(t, ":9000", c.ListenAddr)
	assert.Equal(t, 32, c.WorkerPoolSize)
	assert.Equal(t, 500, c.MaxConnections)
	assert.Equal(t, 3*time.Second, c.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, c.WriteTimeout)
	assert.Equal(t, 16, c.OutboxSize)
	assert.Equal(t, 15*time.Second, c.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, c.HeartbeatTimeout)
	assert.Equal(t, 280, c.MaxMessageChars)
	assert.Equal(t, 5, c.ReportBanThreshold)
	assert.Equal(t, 25, c.RecentReports)
	assert.Equal(t, "localhost:6379", c.RedisAddr)
	assert.Equal(t, "nats://nats:4222", c.NATSURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestLoadFrom_InvalidValuesKeepDefaults(t *testing.T) {
	c := LoadFrom(env(map[string]string{
		"WORKER_POOL_SIZE":     "lots",
		"MAX_CONNECTIONS":      "-1",
		"READ_TIMEOUT":         "soon",
		"REPORT_BAN_THRESHOLD": "0",
		"CORS_ORIGINS":         " , ",
	}))

	d := Default()
	assert.Equal(t, d.WorkerPoolSize, c.WorkerPoolSize)
	assert.Equal(t, d.MaxConnections, c.MaxConnections)
	assert.Equal(t, d.ReadTimeout, c.ReadTimeout)
	assert.Equal(t, d.ReportBanThreshold, c.ReportBanThreshold)
	assert.Equal(t, d.CORSOrigins, c.CORSOrigins)
}
