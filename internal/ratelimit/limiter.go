// Package ratelimit throttles inbound actions with a Redis fixed window.
// Each action (queue join, chat line, report, new connection) is counted
// per endpoint or per remote address; keys expire with their window so no
// identifier outlives it.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule defines a rate limiting policy: the Redis key prefix, maximum number of
// requests allowed in the window, and the window duration.
type Rule struct {
	Key    string        // Redis key prefix (e.g., "rl:msg:", "rl:join:", "rl:conn:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

var (
	// RuleJoin allows 10 join_queue requests per minute per endpoint.
	RuleJoin = Rule{Key: "rl:join:", Limit: 10, Window: 1 * time.Minute}

	// RuleMessage allows 20 chat lines per 10 seconds per endpoint.
	RuleMessage = Rule{Key: "rl:msg:", Limit: 20, Window: 10 * time.Second}

	// RuleReport allows 5 reports per minute per endpoint.
	RuleReport = Rule{Key: "rl:report:", Limit: 5, Window: 1 * time.Minute}

	// RuleConnect allows 30 WebSocket connections per minute per IP.
	RuleConnect = Rule{Key: "rl:conn:", Limit: 30, Window: 1 * time.Minute}
)

// hitScript increments the window counter, starts the window on the first
// hit and reports the count with the window's remaining milliseconds. The
// counter always carries a TTL.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Count      int           // hits in the current window, this one included
	RetryAfter time.Duration // until the window resets; zero when allowed
}

// Limiter performs rate limiting checks against Redis. A nil *Limiter allows
// everything, which is how the server runs without REDIS_ADDR.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Check counts one hit for identifier under rule. On Redis errors it fails
// open: the hit is allowed and the error returned for logging.
func (l *Limiter) Check(ctx context.Context, identifier string, rule Rule) (Decision, error) {
	if l == nil {
		return Decision{Allowed: true}, nil
	}
	key := rule.Key + identifier

	res, err := hitScript.Run(ctx, l.client, []string{key}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		log.Printf("[ratelimit] redis error key=%s: %v (failing open)", key, err)
		return Decision{Allowed: true}, err
	}

	d := Decision{Count: int(res[0])}
	if d.Count <= rule.Limit {
		d.Allowed = true
		return d, nil
	}
	d.RetryAfter = time.Duration(res[1]) * time.Millisecond
	if d.RetryAfter <= 0 {
		d.RetryAfter = rule.Window
	}
	return d, nil
}

// Allow reports whether identifier is still within rule.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	d, err := l.Check(ctx, identifier, rule)
	return d.Allowed, err
}
