package utils

import (
	"context"
	"sync"
	"time"
)

// Guest comment throttling. Anonymous comment submissions are the cheapest
// spam vector, so each IP gets a short cooldown between submissions and a
// daily cap. Counters live in Redis when available; without Redis only the
// in-memory cooldown applies.

const (
	guestCooldown    = 15 * time.Second
	guestDailyLimit  = 30
	throttleTimeout  = 500 * time.Millisecond
	guestKeyCooldown = "guest:cooldown:"
	guestKeyDaily    = "guest:day:"
)

var (
	guestSeen   = map[string]time.Time{}
	guestSeenMu sync.Mutex
)

// GuestCommentAllow reports whether the IP may submit an anonymous comment
// now, and records the attempt. Fail-open on Redis errors.
func GuestCommentAllow(ip string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), throttleTimeout)
		defer cancel()

		ok, err := rc.SetNX(ctx, guestKeyCooldown+ip, "1", guestCooldown).Result()
		if err != nil {
			return true
		}
		if !ok {
			return false
		}

		dayKey := guestKeyDaily + ip + ":" + time.Now().Format("20060102")
		n, err := rc.Incr(ctx, dayKey).Result()
		if err != nil {
			return true
		}
		if n == 1 {
			_ = rc.Expire(ctx, dayKey, 24*time.Hour).Err()
		}
		return n <= guestDailyLimit
	}

	guestSeenMu.Lock()
	defer guestSeenMu.Unlock()
	if last, ok := guestSeen[ip]; ok && time.Since(last) < guestCooldown {
		return false
	}
	guestSeen[ip] = time.Now()
	return true
}

// guestThrottleReset clears in-memory state; only the tests need it.
func guestThrottleReset() {
	guestSeenMu.Lock()
	guestSeen = map[string]time.Time{}
	guestSeenMu.Unlock()
}
