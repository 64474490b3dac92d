// Package offsets maps the fixed snooze/offset button keys to durations.
package offsets

import "time"

// KeyCustom is handled by callers (it opens the custom-datetime flow);
// Resolve deliberately does not know it.
const KeyCustom = "custom"

var table = map[string]time.Duration{
	"1h": time.Hour,
	"1d": 24 * time.Hour,
	"3d": 3 * 24 * time.Hour,
	"1w": 7 * 24 * time.Hour,
}

// Keys lists the fixed offset keys in display order.
func Keys() []string {
	return []string{"1h", "1d", "3d", "1w"}
}

// Resolve returns the duration for a fixed offset key. Unknown keys
// (including "custom") return ok=false; callers answer the user with an
// unknown-option message rather than failing.
func Resolve(key string) (time.Duration, bool) {
	d, ok := table[key]
	return d, ok
}

// Label renders the human text for an offset key.
func Label(key string) string {
	switch key {
	case "1h":
		return "1 hour"
	case "1d":
		return "1 day"
	case "3d":
		return "3 days"
	case "1w":
		return "1 week"
	case KeyCustom:
		return "Custom…"
	}
	return key
}
