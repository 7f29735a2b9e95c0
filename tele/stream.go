package tele

import (
	"context"
	"time"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/log2"
	tele_config "github.com/evtele/easee/tele/config"
	"github.com/evtele/easee/tele/observation"
	"github.com/evtele/easee/tele/signalr"
	"github.com/juju/errors"
)

// Stream is pull iterator of charger events over one hub connection.
// No reconnection: after any error from Recv the stream should be closed.
type Stream struct {
	conn *signalr.Conn
	log  *log2.Log
}

// Open negotiates and connects. Subscribe to chargers before Recv.
func Open(ctx context.Context, n signalr.Negotiator, opt signalr.DialOptions) (*Stream, error) {
	conn, err := signalr.Dial(ctx, n, opt)
	if err != nil {
		return nil, errors.Annotate(err, "stream open")
	}
	return NewStream(conn, opt.Log), nil
}

func NewStream(conn *signalr.Conn, log *log2.Log) *Stream {
	return &Stream{conn: conn, log: log}
}

// DialOptions builds connection options from config section.
func DialOptions(c tele_config.Config, log *log2.Log) signalr.DialOptions {
	if c.LogDebug {
		log = log.Clone(log2.LDebug)
	}
	return signalr.DialOptions{
		ConnOptions:      signalr.ConnOptions{Log: log},
		NegotiateURL:     c.NegotiateURL,
		StreamURL:        c.StreamURL,
		HandshakeTimeout: helpers.IntSecondDefault(c.HandshakeTimeoutSec, signalr.DefaultHandshakeTimeout),
	}
}

// Subscribe asks server to send current and future state of charger.
// Does not wait for acknowledgement.
func (s *Stream) Subscribe(chargerID string) error {
	s.log.Debugf("stream: subscribe charger=%s", chargerID)
	return errors.Annotatef(s.conn.Invoke(TargetSubscribe, chargerID, true), "subscribe charger=%s", chargerID)
}

// Recv blocks until next charger event.
// Keep-alive, results and unrelated invocations are skipped.
func (s *Stream) Recv() (Event, error) {
	for {
		m, err := s.conn.ReceiveMessage()
		if err != nil {
			return Event{}, err
		}
		e, ok, err := EventFromMessage(m, s.log)
		if err != nil || ok {
			return e, err
		}
	}
}

// EventFromMessage extracts charger event from one protocol message.
// ok=false means message carries no event and should be skipped.
func EventFromMessage(m signalr.Message, log *log2.Log) (e Event, ok bool, err error) {
	switch msg := m.(type) {
	case signalr.Ping, signalr.Empty:
		// keep-alive
		return Event{}, false, nil

	case signalr.InvocationResult:
		log.Debugf("stream: skip result id=%s result=%s", msg.ID, msg.Result)
		return Event{}, false, nil

	case signalr.Invocation:
		if msg.Target != TargetProductUpdate {
			log.Debugf("stream: skip target=%s args=%d", msg.Target, len(msg.Arguments))
			return Event{}, false, nil
		}
		if len(msg.Arguments) != 1 {
			return Event{}, false, &ProtocolError{Message: msg, Err: errors.Annotatef(ErrArgumentCount, "received=%d", len(msg.Arguments))}
		}
		e, err = decode(msg, log)
		return e, err == nil, err

	default:
		return Event{}, false, &ProtocolError{Message: m, Err: ErrUnexpectedMessage}
	}
}

func decode(msg signalr.Invocation, log *log2.Log) (Event, error) {
	pu, err := observation.UnmarshalProductUpdate(msg.Arguments[0])
	if err != nil {
		return Event{}, &ProtocolError{Message: msg, Err: err}
	}
	o, err := observation.Decode(pu)
	if err != nil {
		return Event{}, errors.Annotatef(err, "charger=%s code=%d", pu.MID, pu.ID)
	}
	if u, ok := o.(observation.Unknown); ok && observation.KnownCode(pu.ID) {
		log.Infof("stream: code/type mismatch charger=%s code=%d %s=%q", pu.MID, u.Code, pu.DataType, pu.Value)
	}
	return Event{ChargerID: pu.MID, Time: pu.Timestamp, Observation: o}, nil
}

// Close may be called from another goroutine to unblock Recv. Idempotent.
func (s *Stream) Close() error                 { return s.conn.Close() }
func (s *Stream) Stat() *signalr.Stat          { return s.conn.Stat() }
func (s *Stream) SinceLastRecv() time.Duration { return s.conn.SinceLastRecv() }
