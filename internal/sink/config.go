package sink

import (
	"github.com/evtele/easee/helpers"
	"github.com/juju/errors"
)

type Config struct {
	Log struct {
		Enabled bool `hcl:"enable"`
	}
	MQTT   MQTTConfig   `hcl:"mqtt"`
	SQLite SQLiteConfig `hcl:"sqlite"`
	Queue  QueueConfig  `hcl:"queue"`
}

type MQTTConfig struct { //nolint:maligned
	Enabled  bool   `hcl:"enable"`
	LogDebug bool   `hcl:"log_debug"`
	Broker   string `hcl:"broker"`
	ClientID string `hcl:"client_id"`
	Username string `hcl:"username"`
	Password string `hcl:"password"`
	// Topic is prefix/charger/name, status topic is prefix/status.
	TopicPrefix  string `hcl:"topic_prefix"`
	QoS          int    `hcl:"qos"`
	Retain       bool   `hcl:"retain"`
	KeepaliveSec int    `hcl:"keepalive_sec"`
	TimeoutSec   int    `hcl:"timeout_sec"`
	TlsCaFile    string `hcl:"tls_ca_file"`
}

type SQLiteConfig struct {
	Enabled bool   `hcl:"enable"`
	Path    string `hcl:"path"`
}

// Queue keeps records on disk until MQTT and SQLite sinks accept them.
type QueueConfig struct {
	Enabled bool `hcl:"enable"`
	// default persist.root/queue
	Path        string `hcl:"path"`
	RetryMinSec int    `hcl:"retry_min_sec"`
	RetryMaxSec int    `hcl:"retry_max_sec"`
}

func (c *Config) Validate() error {
	errs := make([]error, 0)
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.NotValidf("config: sink.mqtt.broker=empty"))
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, errors.NotValidf("config: sink.mqtt.qos=%d", c.MQTT.QoS))
		}
	}
	if c.SQLite.Enabled && c.SQLite.Path == "" {
		errs = append(errs, errors.NotValidf("config: sink.sqlite.path=empty"))
	}
	return helpers.FoldErrors(errs)
}
