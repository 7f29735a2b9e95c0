package tele

import (
	"fmt"
	"time"

	"github.com/evtele/easee/tele/observation"
	"github.com/evtele/easee/tele/signalr"
	"github.com/juju/errors"
)

const (
	TargetProductUpdate = "ProductUpdate"
	TargetSubscribe     = "SubscribeWithCurrentState"
)

var (
	ErrUnexpectedMessage = fmt.Errorf("unexpected message")
	ErrArgumentCount     = fmt.Errorf("ProductUpdate expects exactly one argument")
)

// Event is one observation of one charger.
type Event struct {
	ChargerID   string
	Time        time.Time
	Observation observation.Observation
}

func (e Event) String() string {
	name, value := observation.Describe(e.Observation)
	return fmt.Sprintf("%s %s %s=%v", e.Time.UTC().Format(time.RFC3339), e.ChargerID, name, value)
}

// ProtocolError means we disagree with server on protocol, stream is unusable.
type ProtocolError struct {
	Message signalr.Message
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %v message=%v", e.Err, e.Message)
}
func (e *ProtocolError) Cause() error { return errors.Cause(e.Err) }
