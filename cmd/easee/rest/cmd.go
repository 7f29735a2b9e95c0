// REST commands: login, chargers, state.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/evtele/easee/api"
	"github.com/evtele/easee/cmd/easee/subcmd"
	"github.com/evtele/easee/internal/state"
	"github.com/juju/errors"
)

const EnvPassword = "EASEE_PASSWORD"

var LoginMod = subcmd.Mod{Name: "login", Usage: "[username]  save token, password from " + EnvPassword + " or api.password", Main: LoginMain}
var ChargersMod = subcmd.Mod{Name: "chargers", Usage: "list chargers and sites", Main: ChargersMain}
var StateMod = subcmd.Mod{Name: "state", Usage: "charger...  print charger state", Main: StateMain}

func LoginMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	return login(ctx, g, args, os.Getenv(EnvPassword))
}

func login(ctx context.Context, g *state.Global, args []string, envPassword string) error {
	user := g.Config.Api.Username
	if len(args) > 0 {
		user = args[0]
	}
	password := envPassword
	if password == "" {
		password = g.Config.Api.Password
	}
	if user == "" || password == "" {
		return errors.NotValidf("login requires username and password")
	}
	c, err := g.Login(ctx, user, password)
	if err != nil {
		return err
	}
	g.Log.Infof("login ok, %s saved to persist.root=%s", c.Token().String(), g.Config.Persist.Root)
	return nil
}

func ChargersMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	return chargers(ctx, g, os.Stdout)
}

func chargers(ctx context.Context, g *state.Global, w io.Writer) error {
	c, err := g.Api(ctx)
	if err != nil {
		return err
	}
	cs, err := c.Chargers(ctx)
	if err != nil {
		return err
	}
	ss, err := c.Sites(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "charger\tname\tproduct\n")
	for _, ch := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", ch.ID, ch.Name, ch.ProductCode)
	}
	fmt.Fprintf(tw, "\nsite\tname\tkey\n")
	for _, s := range ss {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, strOrDash(s.Name), strOrDash(s.SiteKey))
	}
	return tw.Flush()
}

func StateMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	if len(args) == 0 {
		args = g.Config.Tele.Chargers
	}
	return chargerState(ctx, g, args, os.Stdout)
}

func chargerState(ctx context.Context, g *state.Global, ids []string, w io.Writer) error {
	if len(ids) == 0 {
		return errors.NotValidf("state requires charger id")
	}
	c, err := g.Api(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, id := range ids {
		st, err := c.ChargerState(ctx, id)
		if err != nil {
			return err
		}
		if err = enc.Encode(struct {
			ID    string           `json:"id"`
			State api.ChargerState `json:"state"`
		}{id, st}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
