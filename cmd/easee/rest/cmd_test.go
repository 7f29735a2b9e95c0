package rest

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/internal/state"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConf = `api { base_url = "https://api.test/api/" username = "u" password = "p" }`

func testGlobal(t testing.TB, fun func(*http.Request) (*http.Response, error)) (context.Context, *state.Global, *helpers.MockHTTP) {
	mock := &helpers.MockHTTP{Fun: func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "accounts/login") {
			return helpers.MockResponse(req, 200, `{"accessToken":"A","expiresIn":3600,"refreshToken":"R"}`), nil
		}
		return fun(req)
	}}
	ctx, g := state.NewTestContext(t, testConf)
	g.HTTP = &http.Client{Transport: mock}
	return ctx, g, mock
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx, g, mock := testGlobal(t, nil)
	require.NoError(t, login(ctx, g, []string{"other"}, "envpass"))
	require.Equal(t, 1, mock.Count())
	assert.Equal(t, `{"userName":"other","password":"envpass"}`, mock.RequestBodies[0])

	ctx, g, mock = testGlobal(t, nil)
	require.NoError(t, login(ctx, g, nil, ""))
	assert.Equal(t, `{"userName":"u","password":"p"}`, mock.RequestBodies[0])

	ctx, g = state.NewTestContext(t, "")
	err := login(ctx, g, nil, "")
	assert.True(t, errors.IsNotValid(err))
}

func TestChargers(t *testing.T) {
	t.Parallel()
	ctx, g, _ := testGlobal(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/chargers":
			return helpers.MockResponse(req, 200, `[{"id":"EH123456","name":"Garage","productCode":1,"createdOn":"2020-01-02T03:04:05","updatedOn":"2020-01-02T03:04:05.5Z","levelOfAccess":1}]`), nil
		case "/api/sites":
			return helpers.MockResponse(req, 200, `[{"id":42,"siteKey":"AB-CD","name":"Home","levelOfAccess":1}]`), nil
		}
		return helpers.MockResponse(req, 404, ""), nil
	})
	var buf bytes.Buffer
	require.NoError(t, chargers(ctx, g, &buf))
	out := buf.String()
	assert.Contains(t, out, "EH123456  Garage")
	assert.Contains(t, out, "42    Home")
	assert.Contains(t, out, "AB-CD")
}

func TestChargerState(t *testing.T) {
	t.Parallel()
	ctx, g, mock := testGlobal(t, func(req *http.Request) (*http.Response, error) {
		return helpers.MockResponse(req, 200, `{"smartCharging":true,"chargerOpMode":3,"totalPower":7.2,"latestPulse":"2021-03-04T05:06:07Z"}`), nil
	})
	var buf bytes.Buffer
	require.NoError(t, chargerState(ctx, g, []string{"EH1", "EH2"}, &buf))
	assert.Equal(t, 3, mock.Count(), "login + 2 states")
	assert.Equal(t, "/api/chargers/EH2/state", mock.Requests[2].URL.Path)
	assert.Contains(t, buf.String(), `"id": "EH1"`)
	assert.Contains(t, buf.String(), `"totalPower": 7.2`)

	err := chargerState(ctx, g, nil, &buf)
	assert.True(t, errors.IsNotValid(err))
	err = chargerState(ctx, g, []string{"../x"}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id")
}
