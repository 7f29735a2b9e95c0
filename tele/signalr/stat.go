package signalr

// Counters are read and modified atomically, but not consistently,
// i.e. it is possible to read Messages=1 Documents=0 because Documents has not updated yet.

import (
	"expvar"
	"fmt"
)

type Stat struct {
	Recv Counters
	Send Counters
	// Dropped counts received segments that were not valid JSON.
	Dropped expvar.Int
}

type Counters struct {
	Messages  CountSizePair // WebSocket messages
	Documents expvar.Int    // JSON documents inside messages
	Pings     expvar.Int
}

type CountSizePair struct {
	Count expvar.Int
	Size  expvar.Int
}

// StatSnapshot is plain copy of Stat.
type StatSnapshot struct {
	RecvMessages  int64
	RecvSize      int64
	RecvDocuments int64
	RecvPings     int64
	SendMessages  int64
	SendSize      int64
	Dropped       int64
}

func (csp *CountSizePair) Register(size int) {
	csp.Count.Add(1)
	csp.Size.Add(int64(size))
}

func (s *Stat) Snapshot() StatSnapshot {
	return StatSnapshot{
		RecvMessages:  s.Recv.Messages.Count.Value(),
		RecvSize:      s.Recv.Messages.Size.Value(),
		RecvDocuments: s.Recv.Documents.Value(),
		RecvPings:     s.Recv.Pings.Value(),
		SendMessages:  s.Send.Messages.Count.Value(),
		SendSize:      s.Send.Messages.Size.Value(),
		Dropped:       s.Dropped.Value(),
	}
}

func (s *Stat) String() string {
	return s.Snapshot().String()
}

func (ss StatSnapshot) String() string {
	return fmt.Sprintf(`{"recv.count":%d,"recv.size":%d,"recv.docs":%d,"recv.pings":%d,"send.count":%d,"send.size":%d,"dropped":%d}`,
		ss.RecvMessages, ss.RecvSize, ss.RecvDocuments, ss.RecvPings,
		ss.SendMessages, ss.SendSize, ss.Dropped)
}
