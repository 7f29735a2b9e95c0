package state_test

import (
	"context"
	"strings"
	"testing"

	"github.com/evtele/easee/internal/state"
	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, context.Context)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, ctx context.Context) {
			g := state.GetGlobal(ctx)
			assert.False(t, g.Config.Tele.Enabled)
			assert.NotEmpty(t, g.Config.Persist.Root)
		}, ""},

		{"tele", `
tele {
	enable = true
	chargers = ["EH000001", "EH000002"]
	handshake_timeout_sec = 7
	stale_timeout_sec = 300
}`,
			func(t testing.TB, ctx context.Context) {
				c := state.GetGlobal(ctx).Config.Tele
				assert.True(t, c.Enabled)
				assert.Equal(t, []string{"EH000001", "EH000002"}, c.Chargers)
				assert.Equal(t, 7, c.HandshakeTimeoutSec)
				assert.Equal(t, 300, c.StaleTimeoutSec)
			},
			"",
		},

		{"status", `status { listen = "127.0.0.1:8090" }`, func(t testing.TB, ctx context.Context) {
			assert.Equal(t, "127.0.0.1:8090", state.GetGlobal(ctx).Config.Status.Listen)
		}, ""},

		{"api-sink", `
api { base_url = "http://localhost:1/api/" username = "u" timeout_sec = 3 }
sink {
	log { enable = true }
	mqtt { enable = true broker = "tcp://localhost:1883" topic_prefix = "home/easee" qos = 1 retain = true }
	sqlite { enable = true path = "/tmp/obs.sqlite" }
	queue { enable = true }
}`,
			func(t testing.TB, ctx context.Context) {
				c := state.GetGlobal(ctx).Config
				assert.Equal(t, "http://localhost:1/api/", c.Api.BaseURL)
				assert.Equal(t, "u", c.Api.Username)
				assert.Equal(t, 3, c.Api.TimeoutSec)
				assert.True(t, c.Sink.Log.Enabled)
				assert.True(t, c.Sink.MQTT.Enabled)
				assert.Equal(t, "tcp://localhost:1883", c.Sink.MQTT.Broker)
				assert.Equal(t, "home/easee", c.Sink.MQTT.TopicPrefix)
				assert.Equal(t, 1, c.Sink.MQTT.QoS)
				assert.True(t, c.Sink.MQTT.Retain)
				assert.Equal(t, "/tmp/obs.sqlite", c.Sink.SQLite.Path)
				assert.True(t, c.Sink.Queue.Enabled)
			},
			"",
		},

		{"include-normalize", `
tele { enable = true }
include "./empty" {}`,
			nil, ""},

		{"include-optional", `
include "chargers" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, ctx context.Context) {
				g := state.GetGlobal(ctx)
				assert.Equal(t, []string{"EH777"}, g.Config.Tele.Chargers)
			}, ""},

		{"include-overwrites", `
tele { chargers = ["EH1"] }
include "chargers" {}`,
			func(t testing.TB, ctx context.Context) {
				g := state.GetGlobal(ctx)
				assert.Equal(t, []string{"EH777"}, g.Config.Tele.Chargers)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-required", `include "non-exist" {}`, nil, "config required name=non-exist"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)
			ctx, g := state.NewContext(log)

			fs := state.NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"chargers":     `tele { chargers = ["EH777"] }`,
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := state.ReadConfig(log, fs, "test-inline")
			if err == nil {
				cfg.Persist.Root = t.TempDir()
				err = g.Init(ctx, cfg)
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, ctx)
				}
			} else {
				if err == nil || !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		input     string
		expectErr string
	}{
		{"ok", `api { username = "u" } tele { enable = true chargers = ["EH1"] }`, ""},
		{"no-chargers", `api { username = "u" } tele { enable = true }`, "tele.chargers=empty"},
		{"mqtt-no-broker", `api { username = "u" } sink { mqtt { enable = true } }`, "sink.mqtt.broker"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)
			fs := state.NewMockFullReader(map[string]string{"test-inline": c.input})
			cfg := state.MustReadConfig(log, fs, "test-inline")
			err := cfg.Validate()
			if c.expectErr == "" {
				assert.NoError(t, err)
			} else if assert.Error(t, err) {
				assert.Contains(t, err.Error(), c.expectErr)
			}
		})
	}
}
