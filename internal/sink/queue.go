package sink

import (
	"context"
	"sync"
	"time"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	"github.com/temoto/spq"
)

const (
	DefaultRetryMin = 1 * time.Second
	DefaultRetryMax = 5 * time.Minute
)

type QueueOptions struct {
	Log      *log2.Log
	RetryMin time.Duration
	RetryMax time.Duration
}

// Queue contract:
// - Deliver blocks at most for disk write
// - records are handed to next sink in order, at least once
// - failed delivery of head record is retried with backoff, later records wait
// - Close stops worker, undelivered records stay on disk for next Open
type Queue struct {
	log     *log2.Log
	next    Sink
	q       *spq.Queue
	backoff helpers.Backoff
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// OpenQueue with path=spq.OnlyForTesting keeps records in memory.
func OpenQueue(path string, next Sink, opt QueueOptions) (*Queue, error) {
	q, err := spq.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "sink queue path=%s", path)
	}
	if opt.RetryMin == 0 {
		opt.RetryMin = DefaultRetryMin
	}
	if opt.RetryMax == 0 {
		opt.RetryMax = DefaultRetryMax
	}
	self := &Queue{
		log:  opt.Log,
		next: next,
		q:    q,
		backoff: helpers.Backoff{
			Min: opt.RetryMin,
			Max: opt.RetryMax,
			K:   2,
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go self.worker()
	return self, nil
}

func (self *Queue) Deliver(ctx context.Context, r Record) error {
	return errors.Annotate(self.q.MarshalPush(r), "sink queue push")
}

// Close does not wait for pending records, they are delivered after restart.
func (self *Queue) Close() error {
	var err error
	self.once.Do(func() {
		close(self.stopCh)
		err = self.q.Close()
		<-self.doneCh
		if e := self.next.Close(); e != nil && err == nil {
			err = e
		}
	})
	return err
}

func (self *Queue) worker() {
	defer close(self.doneCh)
	ctx := context.Background()
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			// success path
			var r Record
			if err = box.Unmarshal(&r); err != nil {
				self.log.Errorf("sink queue drop b=%x err=%v", box.Bytes(), err)
				if err = self.q.Delete(box); err != nil {
					self.log.Errorf("sink queue Delete err=%v", err)
				}
				continue
			}
			err = self.next.Deliver(ctx, r)
			if err != nil {
				self.log.Errorf("sink queue deliver record=%s err=%v", r.String(), err)
				delay := self.backoff.DelayAfter(false)
				select {
				case <-time.After(delay):
				case <-self.stopCh:
					return
				}
				continue
			}
			self.backoff.Reset()
			if err = self.q.Delete(box); err != nil && err != spq.ErrClosed {
				self.log.Errorf("sink queue Delete err=%v", err)
			}

		case spq.ErrClosed:
			select {
			case <-self.stopCh: // success path
			default:
				self.log.Errorf("CRITICAL sink queue closed unexpectedly")
			}
			return

		default:
			self.log.Errorf("CRITICAL sink queue err=%v", err)
			select {
			case <-time.After(self.backoff.DelayAfter(false)):
			case <-self.stopCh:
				return
			}
		}
	}
}
