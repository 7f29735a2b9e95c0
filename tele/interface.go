package tele

import (
	"time"

	"github.com/evtele/easee/tele/signalr"
)

// Streamer is event source consumed by bridge and CLI.
// Recv and Subscribe are for single goroutine, Close may be called from any.
type Streamer interface {
	Recv() (Event, error)
	Subscribe(chargerID string) error
	Close() error
	Stat() *signalr.Stat
	SinceLastRecv() time.Duration
}

var _ Streamer = &Stream{} // compile-time interface test
