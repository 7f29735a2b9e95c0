package signalr_test

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/evtele/easee/log2"
	"github.com/evtele/easee/tele/signalr"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	typ  int
	data []byte
	err  error
}

// mockWS replays queued messages, blocks on empty queue until Close.
type mockWS struct {
	mu      sync.Mutex
	in      chan wireMessage
	sent    []string
	sendErr error
	closed  chan struct{}
	once    sync.Once
}

func newMockWS(msgs ...string) *mockWS {
	ws := &mockWS{
		in:     make(chan wireMessage, len(msgs)+8),
		closed: make(chan struct{}),
	}
	for _, m := range msgs {
		ws.in <- wireMessage{typ: websocket.TextMessage, data: []byte(m)}
	}
	return ws
}

func (ws *mockWS) ReadMessage() (int, []byte, error) {
	select {
	case m := <-ws.in:
		return m.typ, m.data, m.err
	case <-ws.closed:
		return 0, nil, fmt.Errorf("use of closed network connection")
	}
}

func (ws *mockWS) WriteMessage(typ int, data []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.sendErr != nil {
		return ws.sendErr
	}
	if typ != websocket.TextMessage {
		return fmt.Errorf("unexpected message type=%d", typ)
	}
	ws.sent = append(ws.sent, string(data))
	return nil
}

func (ws *mockWS) Close() error {
	ws.once.Do(func() { close(ws.closed) })
	return nil
}

func (ws *mockWS) Sent() []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]string(nil), ws.sent...)
}

func (ws *mockWS) isClosed() bool {
	select {
	case <-ws.closed:
		return true
	default:
		return false
	}
}

func TestConnRecvFIFO(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	ws := newMockWS(
		`{"type":6}`+"\x1e"+`{"type":1,"target":"A","arguments":[]}`+"\x1e",
		`{bad`+"\x1e"+`{}`+"\x1e",
	)
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log})
	defer c.Close()

	expect := []string{`{"type":6}`, `{"type":1,"target":"A","arguments":[]}`, `{}`}
	for _, e := range expect {
		doc, err := c.Recv()
		require.NoError(t, err)
		assert.Equal(t, e, string(doc))
	}
	ss := c.Stat().Snapshot()
	assert.Equal(t, int64(2), ss.RecvMessages)
	assert.Equal(t, int64(3), ss.RecvDocuments)
	assert.Equal(t, int64(1), ss.Dropped)
	t.Logf("stat=%s", c.Stat())
	assert.True(t, c.SinceLastRecv() < time.Minute)
}

func TestConnReceiveMessage(t *testing.T) {
	t.Parallel()
	ws := newMockWS(`{"type":6}` + "\x1e" + `{"type":3,"invocationId":"0","result":true}` + "\x1e" + `{"type":"x"}` + "\x1e")
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log2.NewTest(t, log2.LDebug)})
	defer c.Close()

	m, err := c.ReceiveMessage()
	require.NoError(t, err)
	assert.Equal(t, signalr.Ping{}, m)
	m, err = c.ReceiveMessage()
	require.NoError(t, err)
	assert.Equal(t, signalr.InvocationResult{ID: "0", Result: json.RawMessage(`true`)}, m)
	_, err = c.ReceiveMessage()
	require.Error(t, err)
	assert.Equal(t, signalr.ErrTypeNotANumber, errors.Cause(err))
	assert.False(t, c.Closed(), "parse error must not kill connection")
	assert.Equal(t, int64(1), c.Stat().Snapshot().RecvPings)
}

func TestConnSend(t *testing.T) {
	t.Parallel()
	ws := newMockWS()
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log2.NewTest(t, log2.LDebug)})
	defer c.Close()

	require.NoError(t, c.Send(map[string]int{"a": 1}))
	require.NoError(t, c.Invoke("SubscribeWithCurrentState", "EH000001", true))
	require.NoError(t, c.Invoke("Nop"))
	assert.Equal(t, []string{
		`{"a":1}` + "\x1e",
		`{"type":1,"invocationId":"0","target":"SubscribeWithCurrentState","arguments":["EH000001",true]}` + "\x1e",
		`{"type":1,"invocationId":"0","target":"Nop","arguments":[]}` + "\x1e",
	}, ws.Sent())
	assert.Equal(t, int64(3), c.Stat().Snapshot().SendMessages)
}

func TestConnSendErrorIsFinal(t *testing.T) {
	t.Parallel()
	ws := newMockWS(`{}` + "\x1e")
	ws.sendErr = io.ErrClosedPipe
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log2.NewTest(t, log2.LDebug)})

	err := c.Send(struct{}{})
	require.Error(t, err)
	assert.Equal(t, io.ErrClosedPipe, errors.Cause(err))
	assert.True(t, ws.isClosed())
	assert.True(t, c.Closed())

	_, err2 := c.Recv()
	assert.Equal(t, err, err2)
	assert.Equal(t, err, c.Send(struct{}{}))
}

func TestConnBadMessageType(t *testing.T) {
	t.Parallel()
	ws := newMockWS()
	ws.in <- wireMessage{typ: websocket.BinaryMessage, data: []byte{1, 2, 3}}
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log2.NewTest(t, log2.LDebug)})

	_, err := c.Recv()
	require.Error(t, err)
	assert.Equal(t, signalr.ErrBadMessageType, errors.Cause(err))
	assert.True(t, ws.isClosed())
}

func TestConnReadError(t *testing.T) {
	t.Parallel()
	ws := newMockWS()
	ws.in <- wireMessage{err: &websocket.CloseError{Code: websocket.CloseGoingAway}}
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log2.NewTest(t, log2.LDebug)})

	_, err := c.Recv()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(errors.Cause(err), websocket.CloseGoingAway))
	// Close after failure keeps returning first error and does not panic.
	c.Close()
	c.Close()
	_, err2 := c.Recv()
	assert.Equal(t, err, err2)
}

func TestConnCloseUnblocksRecv(t *testing.T) {
	t.Parallel()
	ws := newMockWS()
	c := signalr.NewConn(ws, signalr.ConnOptions{Log: log2.NewTest(t, log2.LDebug)})

	errch := make(chan error, 1)
	go func() {
		_, err := c.Recv()
		errch <- err
	}()
	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close(), "idempotent")

	select {
	case err := <-errch:
		require.Error(t, err)
		assert.Equal(t, signalr.ErrClosing, errors.Cause(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Recv not unblocked by Close")
	}
}
