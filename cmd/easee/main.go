package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/coreos/go-systemd/daemon"
	"github.com/evtele/easee/cmd/easee/decode"
	"github.com/evtele/easee/cmd/easee/rest"
	"github.com/evtele/easee/cmd/easee/stream"
	"github.com/evtele/easee/cmd/easee/subcmd"
	"github.com/evtele/easee/internal/state"
	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
)

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	rest.LoginMod,
	rest.ChargersMod,
	rest.StateMod,
	stream.StreamMod,
	stream.BridgeMod,
	decode.Mod,
}

var BuildVersion string = "unknown" // set by ldflags -X

func main() {
	flagConfig := flag.String("config", "easee.hcl", "config file, empty for defaults")
	flagQuiet := flag.Bool("quiet", false, "log errors only")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] command [args]\n\ncommands:\n", os.Args[0])
		subcmd.PrintUsage(flag.CommandLine.Output(), modules)
		fmt.Fprintf(flag.CommandLine.Output(), "\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *flagQuiet {
		log.SetLevel(log2.LError)
	}
	if subcmd.SdNotify("start") || !isatty.IsTerminal(os.Stderr.Fd()) {
		// under systemd or redirected, journal adds timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	mod, err := subcmd.Parse(flag.Arg(0), modules)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
	config := &state.Config{}
	if *flagConfig != "" {
		config = state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	}
	log.Debugf("easee version=%s command=%s", BuildVersion, mod.Name)

	if err := mod.Main(ctx, config, flag.Args()[1:]); err != nil {
		subcmd.SdNotify(daemon.SdNotifyStopping)
		log.Fatal(errors.ErrorStack(err))
	}
}
