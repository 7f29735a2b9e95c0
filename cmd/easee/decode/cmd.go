// Offline decoder of captured hub frames, one or more frames per line.
package decode

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/evtele/easee/cmd/easee/subcmd"
	"github.com/evtele/easee/helpers/cli"
	"github.com/evtele/easee/internal/state"
	"github.com/evtele/easee/log2"
	"github.com/evtele/easee/tele"
	"github.com/evtele/easee/tele/signalr"
)

var recordSeparator = string([]byte{signalr.RecordSeparator})

var Mod = subcmd.Mod{Name: "decode", Usage: "decode hub frames from stdin", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	d := &decoder{w: os.Stdout, log: g.Log}
	return cli.MainLoop("easee-decode", os.Stdin, d.exec, complete)
}

type decoder struct {
	w   io.Writer
	log *log2.Log
}

// exec accepts separator as raw byte or escaped `\x1e` `\u001e`.
// Line without separator is single frame.
func (d *decoder) exec(line string) {
	line = strings.NewReplacer(`\x1e`, recordSeparator, `\u001e`, recordSeparator).Replace(line)
	if !strings.HasSuffix(line, recordSeparator) {
		line += recordSeparator
	}
	docs, dropped := signalr.SplitFrames([]byte(line))
	if dropped != 0 {
		fmt.Fprintf(d.w, "invalid json dropped=%d\n", dropped)
	}
	for _, doc := range docs {
		m, err := signalr.Parse(doc)
		if err != nil {
			fmt.Fprintf(d.w, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(d.w, "message: %T %v\n", m, m)
		e, ok, err := tele.EventFromMessage(m, d.log)
		switch {
		case err != nil:
			fmt.Fprintf(d.w, "error: %v\n", err)
		case ok:
			fmt.Fprintf(d.w, "event: %s\n", e.String())
		}
	}
}

func complete(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix([]prompt.Suggest{
		{Text: `{"type":6}`, Description: "ping"},
		{Text: `{"type":1,"target":"ProductUpdate","arguments":[`, Description: "observation update"},
	}, d.GetWordBeforeCursor(), true)
}
