// Separate package is workaround to import cycles.
package tele_config

type Config struct { //nolint:maligned
	Enabled             bool     `hcl:"enable"`
	LogDebug            bool     `hcl:"log_debug"`
	Chargers            []string `hcl:"chargers"`
	NegotiateURL        string   `hcl:"negotiate_url"`
	StreamURL           string   `hcl:"stream_url"`
	HandshakeTimeoutSec int      `hcl:"handshake_timeout_sec"`
	// Bridge closes stream when nothing was received for this long, 0 disables.
	StaleTimeoutSec int `hcl:"stale_timeout_sec"`
}
