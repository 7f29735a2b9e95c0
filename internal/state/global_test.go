package state_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/internal/state"
	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLoginResponse = `{"accessToken":"A1","expiresIn":3600,"tokenType":"Bearer","refreshToken":"R1"}`

func TestGlobalApiLoginThenRestore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	conf := `api { base_url = "https://api.test/api/" username = "u" password = "p" }
persist { root = "` + root + `" }`

	mock := &helpers.MockHTTP{Fun: func(req *http.Request) (*http.Response, error) {
		return helpers.MockResponse(req, 200, testLoginResponse), nil
	}}
	ctx, g := state.NewTestContext(t, conf)
	g.HTTP = &http.Client{Transport: mock}
	c, err := g.Api(ctx)
	require.NoError(t, err, errors.ErrorStack(err))
	assert.Equal(t, "A1", c.AuthToken())
	require.Equal(t, 1, mock.Count())
	assert.Equal(t, "https://api.test/api/accounts/login", mock.Requests[0].URL.String())

	c2, err := g.Api(ctx)
	require.NoError(t, err)
	assert.True(t, c == c2, "client is cached")

	// new process restores saved token without login
	mock2 := &helpers.MockHTTP{Err: errors.New("must not be called")}
	ctx2, g2 := state.NewTestContext(t, conf)
	g2.HTTP = &http.Client{Transport: mock2}
	c3, err := g2.Api(ctx2)
	require.NoError(t, err)
	assert.Equal(t, "A1", c3.AuthToken())
	assert.Equal(t, "R1", c3.Token().Refresh)
	assert.Equal(t, 0, mock2.Count())
}

func TestGlobalApiRefreshSaved(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	conf := `api { base_url = "https://api.test/api/" username = "u" }
persist { root = "` + root + `" }`

	mock := &helpers.MockHTTP{Fun: func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "refresh_token") {
			return helpers.MockResponse(req, 200, `{"accessToken":"A2","expiresIn":3600,"refreshToken":"R2"}`), nil
		}
		return helpers.MockResponse(req, 200, testLoginResponse), nil
	}}
	ctx, g := state.NewTestContext(t, conf)
	g.HTTP = &http.Client{Transport: mock}
	c, err := g.Api(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Refresh(ctx))

	_, g2 := state.NewTestContext(t, conf)
	g2.HTTP = &http.Client{Transport: &helpers.MockHTTP{Err: errors.New("must not be called")}}
	c2, err := g2.Api(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A2", c2.AuthToken())
	assert.Equal(t, "R2", c2.Token().Refresh)
}

func TestGlobalApiNoCredentials(t *testing.T) {
	t.Parallel()
	ctx, g := state.NewTestContext(t, "")
	_, err := g.Api(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), errors.ErrorStack(err))
	assert.Contains(t, err.Error(), "run login command")
}

func TestGlobalLogin(t *testing.T) {
	t.Parallel()
	mock := &helpers.MockHTTP{Fun: func(req *http.Request) (*http.Response, error) {
		return helpers.MockResponse(req, 200, testLoginResponse), nil
	}}
	ctx, g := state.NewTestContext(t, `api { base_url = "https://api.test/api/" }`)
	g.HTTP = &http.Client{Transport: mock}
	c, err := g.Login(ctx, "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, `{"userName":"user","password":"pass"}`, mock.RequestBodies[0])

	c2, err := g.Api(ctx)
	require.NoError(t, err)
	assert.True(t, c == c2)
}

func TestGetGlobalPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { state.GetGlobal(context.Background()) })
	ctx := log2.ContextWith(context.Background(), log2.NewTest(t, log2.LDebug))
	assert.Panics(t, func() { state.GetGlobal(ctx) })
}
