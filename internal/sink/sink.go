// Package sink delivers stream events to local log, MQTT broker and SQLite,
// optionally through persistent queue.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/log2"
	"github.com/evtele/easee/tele"
	"github.com/evtele/easee/tele/observation"
	"github.com/juju/errors"
)

type Sink interface {
	Deliver(ctx context.Context, r Record) error
	Close() error
}

// Record is flat form of tele.Event shared by sinks and persistent queue.
type Record struct {
	ChargerID string          `json:"charger"`
	Time      time.Time       `json:"time"`
	Code      uint16          `json:"code"`
	Name      string          `json:"name"`
	Value     json.RawMessage `json:"value"`
}

func NewRecord(e tele.Event) (Record, error) {
	name, value := observation.Describe(e.Observation)
	b, err := json.Marshal(value)
	if err != nil {
		return Record{}, errors.Annotatef(err, "record charger=%s name=%s", e.ChargerID, name)
	}
	return Record{
		ChargerID: e.ChargerID,
		Time:      e.Time,
		Code:      e.Observation.ID(),
		Name:      name,
		Value:     b,
	}, nil
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s=%s", r.Time.UTC().Format(time.RFC3339), r.ChargerID, r.Name, r.Value)
}

func (r Record) MarshalBinary() ([]byte, error) { return json.Marshal(r) }
func (r *Record) UnmarshalBinary(b []byte) error {
	return errors.Annotate(json.Unmarshal(b, r), "record unmarshal")
}

// Multi delivers to every sink, error of one does not stop others.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, r Record) error {
	errs := make([]error, 0, len(m))
	for _, s := range m {
		errs = append(errs, s.Deliver(ctx, r))
	}
	return helpers.FoldErrors(errs)
}

func (m Multi) Close() error {
	errs := make([]error, 0, len(m))
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return helpers.FoldErrors(errs)
}

type Log struct{ log *log2.Log }

func NewLog(log *log2.Log) *Log { return &Log{log: log} }

func (l *Log) Deliver(ctx context.Context, r Record) error {
	l.log.Infof("%s", r.String())
	return nil
}
func (*Log) Close() error { return nil }

// Open builds sinks enabled in config.
// Log sink is immediate, MQTT and SQLite go through queue when sink.queue.enable=true.
func Open(ctx context.Context, c Config, persistRoot string, log *log2.Log) (Sink, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var result Multi
	if c.Log.Enabled {
		result = append(result, NewLog(log))
	}

	var remote Multi
	if c.SQLite.Enabled {
		s, err := OpenSQLite(ctx, c.SQLite.Path, log)
		if err != nil {
			_ = result.Close()
			return nil, err
		}
		remote = append(remote, s)
	}
	if c.MQTT.Enabled {
		s, err := NewMQTT(c.MQTT, log)
		if err != nil {
			_ = remote.Close()
			_ = result.Close()
			return nil, err
		}
		remote = append(remote, s)
	}

	switch {
	case len(remote) == 0:
	case c.Queue.Enabled:
		path := c.Queue.Path
		if path == "" {
			path = filepath.Join(persistRoot, "queue")
		}
		q, err := OpenQueue(path, remote, QueueOptions{
			Log:      log,
			RetryMin: helpers.IntSecondDefault(c.Queue.RetryMinSec, DefaultRetryMin),
			RetryMax: helpers.IntSecondDefault(c.Queue.RetryMaxSec, DefaultRetryMax),
		})
		if err != nil {
			_ = remote.Close()
			_ = result.Close()
			return nil, err
		}
		result = append(result, q)
	default:
		result = append(result, remote...)
	}
	if len(result) == 0 {
		log.Errorf("sink: nothing enabled, events are discarded")
	}
	return result, nil
}
