package stream

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evtele/easee/internal/sink"
	"github.com/evtele/easee/internal/state"
	"github.com/evtele/easee/internal/status"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSink chan sink.Record

func (c chanSink) Deliver(ctx context.Context, r sink.Record) error {
	c <- r
	return nil
}

func (chanSink) Close() error { return nil }

// fakeCloud serves login, negotiate and hub endpoints.
// Hub sends one total_power update after subscribe.
func fakeCloud(t testing.TB, subscribed chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"A","expiresIn":3600,"refreshToken":"R"}`))
	})
	mux.HandleFunc("/hubs/products/negotiate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"negotiateVersion":1,"connectionId":"cid","connectionToken":"ctok"}`))
	})
	mux.HandleFunc("/hubs/products", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("server: upgrade err=%v", err)
			return
		}
		defer ws.Close()
		if _, _, err = ws.ReadMessage(); err != nil {
			return
		}
		_ = ws.WriteMessage(websocket.TextMessage, []byte("{}\x1e"))
		_, b, err := ws.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- string(b)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(
			`{"type":1,"target":"ProductUpdate","arguments":[{"mid":"EH1","dataType":3,"id":120,"timestamp":"2021-03-04T05:06:07Z","value":"7.5"}]}`+"\x1e"))
		for {
			if _, _, err = ws.ReadMessage(); err != nil {
				return
			}
		}
	})
	return httptest.NewServer(mux)
}

func testConfig(srvURL string, username string) string {
	return fmt.Sprintf(`
api { base_url = "%[1]s/api/" username = "%[3]s" password = "p" }
tele {
  negotiate_url = "%[1]s/hubs/products/negotiate?negotiateVersion=1"
  stream_url = "%[2]s/hubs/products"
}`, srvURL, "ws"+strings.TrimPrefix(srvURL, "http"), username)
}

func TestRunDeliver(t *testing.T) {
	t.Parallel()
	subscribed := make(chan string, 1)
	srv := fakeCloud(t, subscribed)
	defer srv.Close()
	ctx, g := state.NewTestContext(t, testConfig(srv.URL, "u"))

	out := make(chanSink, 1)
	errCh := make(chan error, 1)
	b, stream, err := open(ctx, g, []string{"EH1"}, out)
	require.NoError(t, err, errors.ErrorStack(err))
	go func() { errCh <- run(ctx, g, b, stream) }()

	select {
	case s := <-subscribed:
		assert.Contains(t, s, `"target":"SubscribeWithCurrentState"`)
		assert.Contains(t, s, `"EH1"`)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting subscribe")
	}
	select {
	case r := <-out:
		assert.Equal(t, "EH1", r.ChargerID)
		assert.Equal(t, "total_power", r.Name)
		assert.Equal(t, "7.5", string(r.Value))
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting record")
	}

	g.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err, errors.ErrorStack(err))
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after stop")
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	srv := fakeCloud(t, make(chan string, 1))
	defer srv.Close()

	t.Run("no-chargers", func(t *testing.T) {
		ctx, g := state.NewTestContext(t, testConfig(srv.URL, "u"))
		_, _, err := open(ctx, g, nil, make(chanSink, 1))
		require.Error(t, err)
		assert.True(t, errors.IsNotValid(err), errors.ErrorStack(err))
	})
	t.Run("no-credentials", func(t *testing.T) {
		ctx, g := state.NewTestContext(t, testConfig(srv.URL, ""))
		_, _, err := open(ctx, g, []string{"EH1"}, make(chanSink, 1))
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err), errors.ErrorStack(err))
	})
	t.Run("stream-open", func(t *testing.T) {
		ctx, g := state.NewTestContext(t, `
api { base_url = "`+srv.URL+`/api/" username = "u" password = "p" }
tele { negotiate_url = "`+srv.URL+`/missing" }`)
		_, _, err := open(ctx, g, []string{"EH1"}, make(chanSink, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stream open")
	})
}

func TestStartStatus(t *testing.T) {
	t.Parallel()
	subscribed := make(chan string, 1)
	srv := fakeCloud(t, subscribed)
	defer srv.Close()

	start := func(t *testing.T, listen string) (*status.Server, func(), error) {
		dbPath := filepath.Join(t.TempDir(), "obs.db")
		ctx, g := state.NewTestContext(t, testConfig(srv.URL, "u")+`
sink { sqlite { enable = true path = "`+dbPath+`" } }
status { listen = "`+listen+`" }`)
		b, stream, err := open(ctx, g, []string{"EH1"}, make(chanSink, 1))
		require.NoError(t, err, errors.ErrorStack(err))
		t.Cleanup(func() { stream.Close() })
		return startStatus(ctx, g, b, stream)
	}

	t.Run("serve", func(t *testing.T) {
		st, stop, err := start(t, "127.0.0.1:0")
		require.NoError(t, err, errors.ErrorStack(err))
		for _, path := range []string{"/stat", "/chargers/EH1/latest"} {
			resp, err := http.Get("http://" + st.Addr() + path)
			require.NoError(t, err)
			body, _ := ioutil.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.NotEmpty(t, body)
		}
		stop()
		_, err = http.Get("http://" + st.Addr() + "/healthz")
		assert.Error(t, err)
	})
	t.Run("listen-error", func(t *testing.T) {
		st, stop, err := start(t, "256.0.0.1:1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status listen")
		assert.Nil(t, st)
		assert.Nil(t, stop)
	})
}
