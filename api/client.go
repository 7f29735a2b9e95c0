// Package api is Easee cloud REST client: authentication with token refresh
// and read-only resource queries. Stream negotiation uses PostRaw and AuthToken.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
)

const (
	DefaultBaseURL = "https://api.easee.com/api/"
	DefaultTimeout = 30 * time.Second

	responseLimit = 4 << 20
)

var ErrInvalidID = errors.New("invalid id")

type Options struct {
	BaseURL string
	// nil means new http.Client with Timeout
	HTTP    *http.Client
	Timeout time.Duration
	Log     *log2.Log
}

type Client struct {
	opt  Options
	http *http.Client

	mu        sync.Mutex
	token     Token
	onRefresh func(*Client)
}

func New(token Token, opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(opt.BaseURL, "/") {
		opt.BaseURL += "/"
	}
	if opt.Timeout == 0 {
		opt.Timeout = DefaultTimeout
	}
	hc := opt.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opt.Timeout}
	}
	return &Client{opt: opt, http: hc, token: token}
}

// Login retrieves access tokens with user credentials.
func Login(ctx context.Context, user, password string, opt Options) (*Client, error) {
	c := New(Token{}, opt)
	params := struct {
		UserName string `json:"userName"`
		Password string `json:"password"`
	}{user, password}
	c.opt.Log.Infof("api: login user=%s", user)
	var lr loginResponse
	if err := c.call(ctx, http.MethodPost, c.opt.BaseURL+"accounts/login", "", params, &lr); err != nil {
		return nil, errors.Annotate(err, "login")
	}
	c.token = lr.token(time.Now())
	return c, nil
}

// FromSaved restores client from Save output.
func FromSaved(saved string, opt Options) (*Client, error) {
	t, err := ParseToken(saved)
	if err != nil {
		return nil, err
	}
	return New(t, opt), nil
}

// OnRefresh sets hook called after every successful token refresh, e.g. to persist Save().
func (c *Client) OnRefresh(f func(*Client)) {
	c.mu.Lock()
	c.onRefresh = f
	c.mu.Unlock()
}

func (c *Client) Token() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) Save() string { return c.Token().Save() }

// AuthToken returns bearer token without "Bearer " prefix.
func (c *Client) AuthToken() string { return c.Token().Access }

// Refresh exchanges refresh token for new access token.
func (c *Client) Refresh(ctx context.Context) error {
	old := c.Token()
	params := struct {
		RefreshToken string `json:"refreshToken"`
	}{old.Refresh}
	c.opt.Log.Infof("api: refresh access token")
	var lr loginResponse
	if err := c.call(ctx, http.MethodPost, c.opt.BaseURL+"accounts/refresh_token", "", params, &lr); err != nil {
		return errors.Annotate(err, "refresh token")
	}
	c.mu.Lock()
	c.token = lr.token(time.Now())
	hook := c.onRefresh
	c.mu.Unlock()
	if hook != nil {
		hook(c)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.GetRaw(ctx, c.opt.BaseURL+path, out)
}
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.PostRaw(ctx, c.opt.BaseURL+path, body, out)
}

// GetRaw is authenticated GET of absolute url.
// On 401 it refreshes token and retries once.
func (c *Client) GetRaw(ctx context.Context, url string, out interface{}) error {
	return c.authCall(ctx, http.MethodGet, url, nil, out)
}

// PostRaw is authenticated POST of absolute url, nil body is sent empty.
// On 401 it refreshes token and retries once.
func (c *Client) PostRaw(ctx context.Context, url string, body, out interface{}) error {
	return c.authCall(ctx, http.MethodPost, url, body, out)
}

func (c *Client) Chargers(ctx context.Context) ([]Charger, error) {
	var cs []Charger
	err := c.Get(ctx, "chargers", &cs)
	return cs, errors.Annotate(err, "chargers")
}

func (c *Client) Charger(ctx context.Context, id string) (Charger, error) {
	var ch Charger
	if err := checkID(id); err != nil {
		return ch, err
	}
	err := c.Get(ctx, "chargers/"+id, &ch)
	return ch, errors.Annotatef(err, "charger=%s", id)
}

func (c *Client) ChargerState(ctx context.Context, id string) (ChargerState, error) {
	var st ChargerState
	if err := checkID(id); err != nil {
		return st, err
	}
	err := c.Get(ctx, "chargers/"+id+"/state", &st)
	return st, errors.Annotatef(err, "charger=%s state", id)
}

func (c *Client) Sites(ctx context.Context) ([]Site, error) {
	var ss []Site
	err := c.Get(ctx, "sites", &ss)
	return ss, errors.Annotate(err, "sites")
}

func (c *Client) Site(ctx context.Context, id uint32) (SiteDetails, error) {
	var sd SiteDetails
	err := c.Get(ctx, fmt.Sprintf("sites/%d", id), &sd)
	return sd, errors.Annotatef(err, "site=%d", id)
}

func (c *Client) SiteLifetimeEnergy(ctx context.Context, siteID uint32) ([]MeterReading, error) {
	var rs []MeterReading
	err := c.Get(ctx, fmt.Sprintf("sites/%d/energy", siteID), &rs)
	return rs, errors.Annotatef(err, "site=%d energy", siteID)
}

func (c *Client) CircuitDynamicCurrent(ctx context.Context, siteID, circuitID uint32) (Triphase, error) {
	var tp Triphase
	err := c.Get(ctx, fmt.Sprintf("sites/%d/circuits/%d/dynamicCurrent", siteID, circuitID), &tp)
	return tp, errors.Annotatef(err, "site=%d circuit=%d dynamic current", siteID, circuitID)
}

func checkID(id string) error {
	if id == "" {
		return errors.Annotatef(ErrInvalidID, "%q", id)
	}
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return errors.Annotatef(ErrInvalidID, "%q", id)
		}
	}
	return nil
}

func (c *Client) authCall(ctx context.Context, method, url string, body, out interface{}) error {
	if c.Token().Expired(time.Now()) {
		c.opt.Log.Debugf("api: token expired")
		if err := c.Refresh(ctx); err != nil {
			return err
		}
	}
	err := c.call(ctx, method, url, c.AuthToken(), body, out)
	if se, ok := errors.Cause(err).(*StatusError); ok && se.StatusCode == http.StatusUnauthorized {
		c.opt.Log.Debugf("api: %s %s unauthorized, retry after refresh", method, url)
		if err = c.Refresh(ctx); err != nil {
			return err
		}
		err = c.call(ctx, method, url, c.AuthToken(), body, out)
	}
	return err
}

func (c *Client) call(ctx context.Context, method, url, bearer string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Annotate(err, "request marshal")
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Trace(err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.opt.Log.Debugf("api: %s %s", method, url)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Annotatef(err, "%s %s", method, url)
	}
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		return errors.Annotatef(err, "%s %s read response", method, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(b, out); err != nil {
		return &DataError{URL: url, Body: b, Err: err}
	}
	return nil
}
