package signalr

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
)

const (
	DefaultNegotiateURL = "https://streams.easee.com/hubs/products/negotiate?negotiateVersion=1"
	DefaultStreamURL    = "wss://streams.easee.com/hubs/products"

	DefaultHandshakeTimeout = 30 * time.Second

	upgradeBodyLimit = 4 << 10
)

// Negotiator is the authenticated REST side needed to open a stream.
// api.Client implements it.
type Negotiator interface {
	PostRaw(ctx context.Context, url string, body, out interface{}) error
	AuthToken() string
}

type NegotiateResponse struct {
	NegotiateVersion int    `json:"negotiateVersion"`
	ConnectionID     string `json:"connectionId"`
	ConnectionToken  string `json:"connectionToken"`
}

type DialOptions struct {
	ConnOptions
	NegotiateURL     string
	StreamURL        string
	Dialer           *websocket.Dialer
	HandshakeTimeout time.Duration
}

// UpgradeError keeps the HTTP response of rejected WebSocket upgrade.
type UpgradeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpgradeError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("websocket upgrade: %v", e.Err)
	}
	return fmt.Sprintf("websocket upgrade: status=%d body=%q err=%v", e.StatusCode, e.Body, e.Err)
}
func (e *UpgradeError) Unwrap() error { return e.Err }

var handshake = struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}{"json", 1}

// UpgradeURL appends connection token and bearer token to base, in this order.
func UpgradeURL(base, connectionToken, bearer string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "id=" + url.QueryEscape(connectionToken) + "&access_token=" + url.QueryEscape(bearer)
}

// Dial negotiates, upgrades to WebSocket and sends protocol handshake.
// On error nothing is left open.
func Dial(ctx context.Context, n Negotiator, opt DialOptions) (*Conn, error) {
	if opt.NegotiateURL == "" {
		opt.NegotiateURL = DefaultNegotiateURL
	}
	if opt.StreamURL == "" {
		opt.StreamURL = DefaultStreamURL
	}
	if opt.HandshakeTimeout == 0 {
		opt.HandshakeTimeout = DefaultHandshakeTimeout
	}
	dialer := opt.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		d.HandshakeTimeout = opt.HandshakeTimeout
		dialer = &d
	}

	var nr NegotiateResponse
	if err := n.PostRaw(ctx, opt.NegotiateURL, nil, &nr); err != nil {
		return nil, errors.Annotate(err, "negotiate")
	}
	if nr.ConnectionToken == "" {
		return nil, errors.NotValidf("negotiate response without connectionToken")
	}
	opt.Log.Debugf("signalr: negotiated version=%d connection=%s", nr.NegotiateVersion, nr.ConnectionID)

	u := UpgradeURL(opt.StreamURL, nr.ConnectionToken, n.AuthToken())
	ws, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		ue := &UpgradeError{Err: err}
		if resp != nil {
			ue.StatusCode = resp.StatusCode
			if resp.Body != nil {
				b, _ := ioutil.ReadAll(io.LimitReader(resp.Body, upgradeBodyLimit))
				_ = resp.Body.Close()
				ue.Body = string(b)
			}
		}
		return nil, ue
	}

	c := NewConn(ws, opt.ConnOptions)
	if err = c.Send(handshake); err != nil {
		_ = c.Close()
		return nil, errors.Annotate(err, "handshake")
	}
	opt.Log.Debugf("signalr: connected %s", opt.StreamURL)
	return c, nil
}
