package state

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/evtele/easee/log2"
)

// NewTestContext reads inline config, persist.root defaults to temporary directory removed after test.
func NewTestContext(t testing.TB, confString string) (context.Context, *Global) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	cfg := MustReadConfig(log, fs, "test-inline")
	if cfg.Persist.Root == "" {
		dir, err := ioutil.TempDir("", "easee-test-")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.RemoveAll(dir) })
		cfg.Persist.Root = dir
	}
	g.MustInit(ctx, cfg)
	return ctx, g
}
