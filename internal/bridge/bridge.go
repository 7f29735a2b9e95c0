// Package bridge runs event stream into sinks until stopped or stream dies.
package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/evtele/easee/internal/sink"
	"github.com/evtele/easee/log2"
	"github.com/evtele/easee/tele"
	"github.com/evtele/easee/tele/observation"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

var ErrStale = fmt.Errorf("stream stale")

type Options struct {
	Log      *log2.Log
	Chargers []string
	// Close stream when nothing was received for this long, 0 disables.
	StaleTimeout time.Duration
}

type Bridge struct {
	alive  *alive.Alive
	log    *log2.Log
	opt    Options
	stream tele.Streamer
	sink   sink.Sink
	stale  uint32
	stat   Stat
}

type Stat struct {
	Events  uint64 `json:"events"`
	Errors  uint64 `json:"errors"`
	Unknown uint64 `json:"unknown"`
}

func New(stream tele.Streamer, s sink.Sink, opt Options) *Bridge {
	return &Bridge{
		alive:  alive.NewAlive(),
		log:    opt.Log,
		opt:    opt,
		stream: stream,
		sink:   s,
	}
}

func (b *Bridge) Alive() *alive.Alive { return b.alive }

func (b *Bridge) Stat() Stat {
	return Stat{
		Events:  atomic.LoadUint64(&b.stat.Events),
		Errors:  atomic.LoadUint64(&b.stat.Errors),
		Unknown: atomic.LoadUint64(&b.stat.Unknown),
	}
}

// Stop is safe from any goroutine, Run returns nil soon after.
// Stopping Alive() has same effect.
func (b *Bridge) Stop() {
	b.alive.Stop()
	_ = b.stream.Close()
}

// Run subscribes chargers and delivers events until Stop or stream error.
// Sink errors are logged and counted, stream errors end Run.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.alive.Add(1) {
		return nil
	}
	defer b.alive.Done()
	defer b.alive.Stop()
	go func() {
		<-b.alive.StopChan()
		_ = b.stream.Close()
	}()

	for _, id := range b.opt.Chargers {
		b.log.Infof("bridge: subscribe charger=%s", id)
		if err := b.stream.Subscribe(id); err != nil {
			if !b.alive.IsRunning() {
				return nil
			}
			return errors.Annotate(err, "bridge")
		}
	}
	if b.opt.StaleTimeout > 0 {
		go b.watchdog()
	}

	for {
		e, err := b.stream.Recv()
		if err != nil {
			switch {
			case atomic.LoadUint32(&b.stale) != 0:
				return errors.Annotatef(ErrStale, "bridge: nothing received for %v", b.opt.StaleTimeout)
			case !b.alive.IsRunning():
				return nil
			}
			return errors.Annotate(err, "bridge")
		}
		atomic.AddUint64(&b.stat.Events, 1)
		if _, ok := e.Observation.(observation.Unknown); ok {
			atomic.AddUint64(&b.stat.Unknown, 1)
		}
		b.deliver(ctx, e)
	}
}

func (b *Bridge) deliver(ctx context.Context, e tele.Event) {
	r, err := sink.NewRecord(e)
	if err == nil {
		err = b.sink.Deliver(ctx, r)
	}
	if err != nil {
		atomic.AddUint64(&b.stat.Errors, 1)
		b.log.Errorf("bridge: event=%s err=%v", e.String(), err)
	}
}

func (b *Bridge) watchdog() {
	period := b.opt.StaleTimeout / 4
	tmr := time.NewTicker(period)
	defer tmr.Stop()
	stopCh := b.alive.StopChan()
	for {
		select {
		case <-stopCh:
			return
		case <-tmr.C:
			if since := b.stream.SinceLastRecv(); since > b.opt.StaleTimeout {
				b.log.Errorf("bridge: stream stale, last receive %v ago", since)
				atomic.StoreUint32(&b.stale, 1)
				_ = b.stream.Close()
				return
			}
		}
	}
}
