package signalr

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/log2"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/temoto/atomic_clock"
)

var (
	ErrClosing        = fmt.Errorf("closing")
	ErrBadMessageType = fmt.Errorf("bad message type")
)

// WebSocket is the subset of *websocket.Conn used by Conn.
type WebSocket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ WebSocket = &websocket.Conn{}

type ConnOptions struct {
	Log *log2.Log
}

// Conn is the Transport: owns one WebSocket, splits received messages
// into documents and replays them one at a time in wire order.
// First read/write error is final, Conn closes the socket and
// every later call returns the same error.
type Conn struct {
	ws   WebSocket
	opt  ConnOptions
	buf  []json.RawMessage
	err  helpers.AtomicError
	last atomic_clock.Clock
	stat Stat
}

func NewConn(ws WebSocket, opt ConnOptions) *Conn {
	c := &Conn{
		ws:  ws,
		opt: opt,
	}
	c.last.SetNow()
	return c
}

func (c *Conn) Close() error {
	err := c.die(ErrClosing)
	if errors.Cause(err) == ErrClosing {
		return nil
	}
	return err
}

func (c *Conn) Closed() bool {
	_, ok := c.err.Load()
	return ok
}

// Recv returns next JSON document, blocks reading the socket when buffer is empty.
func (c *Conn) Recv() (json.RawMessage, error) {
	if err, dead := c.err.Load(); dead {
		return nil, err
	}
	for len(c.buf) == 0 {
		typ, b, err := c.ws.ReadMessage()
		if err != nil {
			return nil, c.die(errors.Annotate(err, "receive"))
		}
		if typ != websocket.TextMessage {
			return nil, c.die(errors.Annotatef(ErrBadMessageType, "type=%d len=%d", typ, len(b)))
		}
		c.last.SetNow()
		c.stat.Recv.Messages.Register(len(b))
		docs, dropped := SplitFrames(b)
		if dropped != 0 {
			c.stat.Dropped.Add(int64(dropped))
			c.opt.Log.Debugf("signalr: dropped invalid segments=%d message=%q", dropped, b)
		}
		c.buf = docs
	}

	doc := c.buf[0]
	c.buf[0] = nil
	c.buf = c.buf[1:]
	c.stat.Recv.Documents.Add(1)
	return doc, nil
}

// ReceiveMessage is Recv followed by Parse.
func (c *Conn) ReceiveMessage() (Message, error) {
	doc, err := c.Recv()
	if err != nil {
		return nil, err
	}
	m, err := Parse(doc)
	if err != nil {
		return nil, errors.Annotate(err, "parse")
	}
	if _, ok := m.(Ping); ok {
		c.stat.Recv.Pings.Add(1)
	}
	return m, nil
}

// Send writes v as single document in single text message.
func (c *Conn) Send(v interface{}) error {
	if err, dead := c.err.Load(); dead {
		return err
	}
	b, err := FrameMarshal(v)
	if err != nil {
		return err
	}
	c.opt.Log.Debugf("signalr: send %s", b[:len(b)-1])
	if err = c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return c.die(errors.Annotate(err, "send"))
	}
	c.stat.Send.Messages.Register(len(b))
	c.stat.Send.Documents.Add(1)
	return nil
}

type invocationRequest struct {
	Type         MessageType   `json:"type"`
	InvocationID string        `json:"invocationId"`
	Target       string        `json:"target"`
	Arguments    []interface{} `json:"arguments"`
}

// Invoke sends Invocation message, does not wait for result.
func (c *Conn) Invoke(target string, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	return c.Send(invocationRequest{
		Type:         TypeInvocation,
		InvocationID: "0",
		Target:       target,
		Arguments:    args,
	})
}

func (c *Conn) SinceLastRecv() time.Duration { return atomic_clock.Since(&c.last) }
func (c *Conn) Stat() *Stat                  { return &c.stat }

func (c *Conn) die(e error) error {
	if err, found := c.err.StoreOnce(e); found {
		return err
	}
	_ = c.ws.Close()

	// reformat some well known errors for easier log reading
	estr := e.Error()
	if neterr, ok := errors.Cause(e).(net.Error); ok && neterr.Timeout() {
		estr = "timeout"
	} else if websocket.IsCloseError(errors.Cause(e), websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		estr = "closed by remote"
	} else if strings.HasSuffix(estr, "connection reset by peer") {
		estr = "closed by remote"
	}
	c.opt.Log.Debugf("signalr: die +close e=%s stat=%s", estr, c.stat.String())
	return e
}
