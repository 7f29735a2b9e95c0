package state

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/evtele/easee/api"
	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/internal/state/persist"
	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

const DefaultPersistRoot = "./easee-db"

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	// nil means api.Client creates its own, tests inject helpers.MockHTTP here
	HTTP *http.Client
	Log  *log2.Log

	apiMu   sync.Mutex
	api     *api.Client
	token   savedToken
	persist persist.Persist
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive:        alive.NewAlive(),
		BuildVersion: "unknown",
		Log:          log,
	}
	ctx := context.Background()
	ctx = log2.ContextWith(ctx, log)
	ctx = context.WithValue(ctx, ContextKey, g)
	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Debugf("build version=%s", g.BuildVersion)

	if g.Config.Persist.Root == "" {
		g.Config.Persist.Root = DefaultPersistRoot
		g.Log.Errorf("config: persist.root=empty changed=%s", g.Config.Persist.Root)
	}
	g.Log.Debugf("config: persist.root=%s", g.Config.Persist.Root)

	return errors.Annotate(g.persist.Init("token", &g.token, g.Config.Persist.Root, g.Log), "init")
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

func (g *Global) ApiOptions() api.Options {
	log := g.Log.Clone(log2.LInfo)
	if g.Config.Api.LogDebug {
		log.SetLevel(log2.LDebug)
	}
	return api.Options{
		BaseURL: g.Config.Api.BaseURL,
		HTTP:    g.HTTP,
		Timeout: helpers.IntSecondDefault(g.Config.Api.TimeoutSec, api.DefaultTimeout),
		Log:     log,
	}
}

// Api returns REST client restored from saved token,
// or logs in with configured credentials when nothing was saved.
// Every token refresh is saved.
func (g *Global) Api(ctx context.Context) (*api.Client, error) {
	g.apiMu.Lock()
	defer g.apiMu.Unlock()
	if g.api != nil {
		return g.api, nil
	}

	ok, err := g.persist.Load()
	if err != nil {
		return nil, errors.Annotate(err, "api saved token")
	}
	var c *api.Client
	if ok {
		c = api.New(g.token.get(), g.ApiOptions())
	} else {
		if g.Config.Api.Username == "" {
			return nil, errors.NotFoundf("saved token and api.username, run login command")
		}
		if c, err = api.Login(ctx, g.Config.Api.Username, g.Config.Api.Password, g.ApiOptions()); err != nil {
			return nil, err
		}
		if err = g.SaveToken(c); err != nil {
			return nil, err
		}
	}
	c.OnRefresh(func(c *api.Client) { g.Error(g.SaveToken(c), "api refresh") })
	g.api = c
	return c, nil
}

// Login replaces saved token with fresh login.
func (g *Global) Login(ctx context.Context, user, password string) (*api.Client, error) {
	c, err := api.Login(ctx, user, password, g.ApiOptions())
	if err != nil {
		return nil, err
	}
	if err = g.SaveToken(c); err != nil {
		return nil, err
	}
	c.OnRefresh(func(c *api.Client) { g.Error(g.SaveToken(c), "api refresh") })
	g.apiMu.Lock()
	g.api = c
	g.apiMu.Unlock()
	return c, nil
}

func (g *Global) SaveToken(c *api.Client) error {
	g.token.set(c.Token())
	return errors.Annotate(g.persist.Store(), "save token")
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(errors.ErrorStack(err))
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(err)
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

type savedToken struct {
	mu sync.Mutex
	t  api.Token
}

func (s *savedToken) get() api.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}
func (s *savedToken) set(t api.Token) {
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
}
func (s *savedToken) MarshalBinary() ([]byte, error) { return s.get().MarshalBinary() }
func (s *savedToken) UnmarshalBinary(b []byte) error {
	var t api.Token
	if err := t.UnmarshalBinary(b); err != nil {
		return err
	}
	s.set(t)
	return nil
}
