package helpers

import "time"

// IntSecondDefault converts integer seconds from config, 0 means def.
func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}
