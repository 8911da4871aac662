package clientdata

import "time"

// TTL constants for cached price history.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Window still open: new closes arrive every trading day
	TTLPriceHistory = 24 * time.Hour
	// Window entirely in the past: only split/dividend adjustments can change it
	TTLClosedWindow = 30 * 24 * time.Hour
)

// TTLFor picks the TTL for a window ending at end. A window that closed
// before today keeps the longer of base and TTLClosedWindow.
func TTLFor(end, now time.Time, base time.Duration) time.Duration {
	if end.Before(now.Truncate(24*time.Hour)) && base < TTLClosedWindow {
		return TTLClosedWindow
	}
	return base
}
