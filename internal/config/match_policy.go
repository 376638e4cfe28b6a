package config

import (
	"fmt"
	"strings"
	"time"
)

// MatchPolicy decides how worker replies are paired with pending calls.
type MatchPolicy string

const (
	// MatchFIFO pairs each reply with the oldest pending call. The worker
	// answers strictly in request order and echoes no identifiers.
	MatchFIFO MatchPolicy = "fifo"
	// MatchByID tags each request with an "id" field and pairs replies by
	// the echoed id. Replies without an id fall back to FIFO.
	MatchByID MatchPolicy = "id"
)

// ParseMatchPolicy maps a configuration string to a MatchPolicy.
// The empty string selects MatchFIFO.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fifo":
		return MatchFIFO, nil
	case "id", "by-id", "by_id":
		return MatchByID, nil
	default:
		return "", fmt.Errorf("unknown match policy %q (want fifo or id)", s)
	}
}

// Default per-method call timeouts.
const (
	DefaultInitializeTimeout = 300 * time.Second
	DefaultChatTimeout       = 120 * time.Second
	DefaultCallTimeout       = 30 * time.Second
)

// Timeouts holds the per-method call deadlines. Zero fields fall back to
// the package defaults.
type Timeouts struct {
	// Initialize bounds model loading.
	Initialize time.Duration

	// Chat bounds one generation.
	Chat time.Duration

	// Default bounds every other method.
	Default time.Duration
}

// For returns the timeout applied to a call of method.
func (t Timeouts) For(method string) time.Duration {
	switch method {
	case "initialize":
		return orDefault(t.Initialize, DefaultInitializeTimeout)
	case "chat":
		return orDefault(t.Chat, DefaultChatTimeout)
	default:
		return orDefault(t.Default, DefaultCallTimeout)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}

	return d
}
