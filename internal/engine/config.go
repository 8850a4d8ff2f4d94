package engine

import (
	"fmt"
	"time"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/ratelimit"
	"github.com/mcpcore/mcpcore-go/internal/session"
)

// parseDurationOr parses s as a duration, returning fallback if s is empty
// or malformed. Config validation (internal/config.Config.Validate) is
// expected to have already rejected malformed duration strings; this is a
// defensive second line for callers constructing an Options by hand.
func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// connectionConfig builds a connection.Config from the host's ServerConfig
// fields, by duck-typing the subset engine.Options carries.
func connectionConfig(maxConnections int, idleTimeout string, sendBufferSize int) connection.Config {
	return connection.Config{
		MaxConnections: maxConnections,
		IdleTimeout:    parseDurationOr(idleTimeout, 0),
		SendBufferSize: sendBufferSize,
	}
}

// sessionConfig builds a session.Config from string durations.
func sessionConfig(timeout, refreshTimeout, slidingExpiration string, maxPerUser int) session.Config {
	return session.Config{
		Timeout:            parseDurationOr(timeout, session.DefaultTimeout),
		RefreshTimeout:     parseDurationOr(refreshTimeout, session.DefaultRefreshTimeout),
		SlidingExpiration:  parseDurationOr(slidingExpiration, 0),
		MaxSessionsPerUser: maxPerUser,
	}
}

// rateLimitConfig builds the global-window ratelimit.Config from the
// host's RateLimitConfig fields.
func rateLimitConfig(mode string, limit int, duration string) ratelimit.Config {
	m := ratelimit.ModeSliding
	if mode == string(ratelimit.ModeFixed) {
		m = ratelimit.ModeFixed
	}
	return ratelimit.Config{
		Mode:     m,
		Limit:    limit,
		Duration: parseDurationOr(duration, time.Minute),
	}
}

func validateOptions(o Options) error {
	if o.Config == nil {
		return fmt.Errorf("engine: Options.Config is required")
	}
	return nil
}
