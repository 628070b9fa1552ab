// Package config reads the server's settings from the environment. Every
// setting has a default; a malformed value is logged and the default kept.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of the pairing server.
type Config struct {
	ListenAddr     string        // LISTEN_ADDR
	WorkerPoolSize int           // WORKER_POOL_SIZE
	MaxConnections int           // MAX_CONNECTIONS
	ReadTimeout    time.Duration // READ_TIMEOUT
	WriteTimeout   time.Duration // WRITE_TIMEOUT
	OutboxSize     int           // OUTBOX_SIZE, per-connection queued frames

	HeartbeatInterval time.Duration // HEARTBEAT_INTERVAL, protocol ping period
	HeartbeatTimeout  time.Duration // HEARTBEAT_TIMEOUT, grace after a missed ping

	MaxMessageChars    int // MAX_MESSAGE_CHARS
	ReportBanThreshold int // REPORT_BAN_THRESHOLD
	RecentReports      int // RECENT_REPORTS, size of /api/reports listing

	RedisAddr   string   // REDIS_ADDR, empty disables rate limiting
	NATSURL     string   // NATS_URL, empty disables event fan-out
	CORSOrigins []string // CORS_ORIGINS, comma-separated
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		WorkerPoolSize:     256,
		MaxConnections:     100000,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		OutboxSize:         64,
		HeartbeatInterval:  30 * time.Second,
		HeartbeatTimeout:   10 * time.Second,
		MaxMessageChars:    500,
		ReportBanThreshold: 3,
		RecentReports:      10,
		CORSOrigins:        []string{"*"},
	}
}

// Load reads the process environment over Default.
func Load() Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv over Default.
func LoadFrom(getenv func(string) string) Config {
	c := Default()

	if v := getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	positiveInt(getenv, "WORKER_POOL_SIZE", &c.WorkerPoolSize)
	positiveInt(getenv, "MAX_CONNECTIONS", &c.MaxConnections)
	duration(getenv, "READ_TIMEOUT", &c.ReadTimeout)
	duration(getenv, "WRITE_TIMEOUT", &c.WriteTimeout)
	positiveInt(getenv, "OUTBOX_SIZE", &c.OutboxSize)
	duration(getenv, "HEARTBEAT_INTERVAL", &c.HeartbeatInterval)
	duration(getenv, "HEARTBEAT_TIMEOUT", &c.HeartbeatTimeout)
	positiveInt(getenv, "MAX_MESSAGE_CHARS", &c.MaxMessageChars)
	positiveInt(getenv, "REPORT_BAN_THRESHOLD", &c.ReportBanThreshold)
	positiveInt(getenv, "RECENT_REPORTS", &c.RecentReports)

	c.RedisAddr = strings.TrimSpace(getenv("REDIS_ADDR"))
	c.NATSURL = strings.TrimSpace(getenv("NATS_URL"))

	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			c.CORSOrigins = origins
		}
	}
	return c
}

func positiveInt(getenv func(string) string, key string, dst *int) {
	v := getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = n
}

func duration(getenv func(string) string, key string, dst *time.Duration) {
	v := getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = d
}
