package ws

import (
	"log"
	"time"
)

// HeartbeatConfig holds heartbeat tuning parameters.
type HeartbeatConfig struct {
	Interval time.Duration // how often to ping (default: 30s)
	Timeout  time.Duration // grace for a reply after a ping (default: 10s)
}

// DefaultHeartbeatConfig returns sensible defaults for heartbeat monitoring.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// startHeartbeat pings every connection each Interval and evicts those that
// sent nothing for Interval + Timeout. Eviction goes through
// RemoveConnection, so the lobby sees it as an ordinary disconnect. The
// goroutine exits when the server shuts down.
func (s *Server) startHeartbeat(config HeartbeatConfig) {
	if config.Interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case now := <-ticker.C:
				if evicted := s.sweep(now, config.Interval+config.Timeout); evicted > 0 {
					log.Printf("ws: heartbeat evicted %d connection(s) (total=%d)", evicted, s.conns.Count())
				}
			}
		}
	}()
}

// sweep evicts connections idle longer than deadline and pings the rest.
// It returns the number of evicted connections.
func (s *Server) sweep(now time.Time, deadline time.Duration) int {
	evicted := 0
	for _, c := range s.conns.All() {
		idle := now.Sub(c.LastSeen())
		if idle > deadline {
			log.Printf("ws: heartbeat timeout endpoint=%s last_activity=%s ago",
				c.ID, idle.Round(time.Second))
			s.RemoveConnection(c)
			evicted++
			continue
		}

		// Browsers answer protocol pings with a pong frame, which counts as
		// activity in handleConn.
		if err := c.writePing(s.config.WriteTimeout); err != nil {
			log.Printf("ws: heartbeat ping failed endpoint=%s: %v", c.ID, err)
			s.RemoveConnection(c)
			evicted++
		}
	}
	return evicted
}
