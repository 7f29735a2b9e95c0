// Live stream commands: print events or run bridge daemon into sinks.
package stream

import (
	"context"
	"os"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/evtele/easee/cmd/easee/subcmd"
	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/internal/bridge"
	"github.com/evtele/easee/internal/sink"
	"github.com/evtele/easee/internal/state"
	"github.com/evtele/easee/internal/status"
	"github.com/evtele/easee/log2"
	"github.com/evtele/easee/tele"
	"github.com/evtele/easee/tele/signalr"
	"github.com/juju/errors"
)

var StreamMod = subcmd.Mod{Name: "stream", Usage: "[charger...]  print live events", Main: StreamMain}
var BridgeMod = subcmd.Mod{Name: "bridge", Usage: "run daemon delivering events to configured sinks", Main: BridgeMain}

func StreamMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	if len(args) == 0 {
		args = g.Config.Tele.Chargers
	}
	out := log2.NewWriter(os.Stdout, log2.LInfo)
	out.SetFlags(0)
	stop := subcmd.OnSignal(func(os.Signal) { g.Stop() })
	defer stop()

	b, stream, err := open(ctx, g, args, sink.NewLog(out))
	if err != nil {
		return err
	}
	return run(ctx, g, b, stream)
}

func BridgeMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	if err := g.Config.Validate(); err != nil {
		return err
	}
	sinks, err := sink.Open(ctx, g.Config.Sink, g.Config.Persist.Root, g.Log)
	if err != nil {
		return err
	}
	defer func() { g.Error(sinks.Close(), "sink close") }()

	stop := subcmd.OnSignal(func(sig os.Signal) {
		g.Log.Infof("bridge: signal=%v stopping", sig)
		g.Stop()
	})
	defer stop()

	b, stream, err := open(ctx, g, g.Config.Tele.Chargers, sinks)
	if err != nil {
		return err
	}
	if g.Config.Status.Listen != "" {
		_, stopStatus, err := startStatus(ctx, g, b, stream)
		if err != nil {
			_ = stream.Close()
			return err
		}
		defer stopStatus()
	}
	return run(ctx, g, b, stream)
}

func open(ctx context.Context, g *state.Global, chargers []string, s sink.Sink) (*bridge.Bridge, *tele.Stream, error) {
	if len(chargers) == 0 {
		return nil, nil, errors.NotValidf("no chargers, use arguments or tele.chargers")
	}
	c, err := g.Api(ctx)
	if err != nil {
		return nil, nil, err
	}
	stream, err := tele.Open(ctx, c, tele.DialOptions(g.Config.Tele, g.Log))
	if err != nil {
		return nil, nil, errors.Annotate(err, "stream open")
	}
	b := bridge.New(stream, s, bridge.Options{
		Log:          g.Log,
		Chargers:     chargers,
		StaleTimeout: helpers.IntSecondDefault(g.Config.Tele.StaleTimeoutSec, 0),
	})
	return b, stream, nil
}

// run returns when stream dies or g.Alive is stopped.
func run(ctx context.Context, g *state.Global, b *bridge.Bridge, stream *tele.Stream) error {
	go helpers.AliveSub(g.Alive, b.Alive())

	subcmd.SdNotify(daemon.SdNotifyReady)
	err := b.Run(ctx)
	subcmd.SdNotify(daemon.SdNotifyStopping)
	g.Log.Infof("bridge: stat=%+v stream %s", b.Stat(), stream.Stat().String())
	return err
}

// startStatus reads latest observations with separate SQLite handle when sqlite sink is enabled.
// stop shuts down server and closes that handle.
func startStatus(ctx context.Context, g *state.Global, b *bridge.Bridge, stream *tele.Stream) (srv *status.Server, stop func(), err error) {
	opt := status.Options{
		Log:    g.Log,
		Bridge: b.Stat,
		Stream: func() signalr.StatSnapshot { return stream.Stat().Snapshot() },
	}
	var db *sink.SQLite
	if g.Config.Sink.SQLite.Enabled {
		if db, err = sink.OpenSQLite(ctx, g.Config.Sink.SQLite.Path, g.Log); err != nil {
			return nil, nil, err
		}
		opt.Latest = db
	}
	closeDB := func() {
		if db != nil {
			g.Error(db.Close(), "status sqlite close")
		}
	}
	srv = status.NewServer(opt)
	if err = srv.Start(g.Config.Status.Listen); err != nil {
		closeDB()
		return nil, nil, err
	}
	stop = func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		g.Error(srv.Stop(sctx))
		closeDB()
	}
	return srv, stop, nil
}
