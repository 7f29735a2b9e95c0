// Support sub-commands in easee application.
// It's simple but fine so far.
package subcmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/evtele/easee/internal/state"
	"github.com/juju/errors"
)

type Mod struct {
	Name  string
	Usage string
	Main  func(ctx context.Context, config *state.Config, args []string) error
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	var found *Mod
	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			found = m
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command='%s'", command)
	}
	return found, nil
}

func PrintUsage(w io.Writer, modules []Mod) {
	for _, m := range modules {
		fmt.Fprintf(w, "  %-10s %s\n", m.Name, m.Usage)
	}
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}

// OnSignal calls f once on first SIGINT/SIGTERM/SIGQUIT, returned func stops listening.
func OnSignal(f func(os.Signal)) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	stopCh := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			f(sig)
		case <-stopCh:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(stopCh)
	}
}
