package signalr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/juju/errors"
)

// MessageType is the numeric "type" discriminator of hub messages.
type MessageType uint64

const (
	TypeInvocation       MessageType = 1
	TypeStreamItem       MessageType = 2
	TypeCompletion       MessageType = 3
	TypeStreamInvocation MessageType = 4
	TypeCancelInvocation MessageType = 5
	TypePing             MessageType = 6
	TypeClose            MessageType = 7
)

var (
	ErrExpectingObject = errors.New("expecting object")
	ErrMissingType     = errors.New("missing `type` key")
	ErrTypeNotANumber  = errors.New("`type` is not a number")
	ErrMissingKey      = errors.New("missing expected key")
	ErrExpectingString = errors.New("expecting string")
	ErrExpectingArray  = errors.New("expecting array")
)

// Message is one of Empty, Invocation, InvocationResult, Ping, Other.
type Message interface {
	Type() MessageType
}

// Empty is a document without keys, handshake response or keep-alive.
type Empty struct{}

type Invocation struct {
	Target    string
	Arguments []json.RawMessage
}

// InvocationResult is Completion with a result, reply to our Invoke.
type InvocationResult struct {
	ID     string
	Result json.RawMessage
}

type Ping struct{}

// Other keeps any message with unknown or unsupported type verbatim.
type Other struct {
	Kind MessageType
	Raw  json.RawMessage
}

func (Empty) Type() MessageType            { return 0 }
func (Invocation) Type() MessageType       { return TypeInvocation }
func (InvocationResult) Type() MessageType { return TypeCompletion }
func (Ping) Type() MessageType             { return TypePing }
func (m Other) Type() MessageType          { return m.Kind }

func (m Other) String() string { return fmt.Sprintf("Other(type=%d %s)", m.Kind, m.Raw) }
func (m Invocation) String() string {
	args := make([][]byte, len(m.Arguments))
	for i, a := range m.Arguments {
		args[i] = a
	}
	return fmt.Sprintf("Invocation(target=%s arguments=[%s])", m.Target, bytes.Join(args, []byte{','}))
}

// Parse classifies one JSON document. It does no I/O.
func Parse(raw json.RawMessage) (Message, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, errors.Annotatef(ErrExpectingObject, "received %s", raw)
	}
	if len(obj) == 0 {
		return Empty{}, nil
	}

	typeRaw, ok := obj["type"]
	if !ok {
		if serverErr, ok := obj["error"]; ok {
			return nil, errors.Annotatef(ErrMissingType, "server error=%s", serverErr)
		}
		return nil, ErrMissingType
	}
	var typ MessageType
	if k := jsonKind(typeRaw); k < '0' || k > '9' || json.Unmarshal(typeRaw, &typ) != nil {
		return nil, errors.Annotatef(ErrTypeNotANumber, "type=%s", typeRaw)
	}

	switch typ {
	case TypeInvocation:
		target, err := stringKey(obj, "target")
		if err != nil {
			return nil, err
		}
		argsRaw, ok := obj["arguments"]
		if !ok {
			return nil, errors.Annotate(ErrMissingKey, "arguments")
		}
		if jsonKind(argsRaw) != '[' {
			return nil, errors.Annotatef(ErrExpectingArray, "arguments=%s", argsRaw)
		}
		var args []json.RawMessage
		if err := json.Unmarshal(argsRaw, &args); err != nil {
			return nil, errors.Annotatef(ErrExpectingArray, "arguments=%s", argsRaw)
		}
		return Invocation{Target: target, Arguments: args}, nil

	case TypeCompletion:
		id, err := stringKey(obj, "invocationId")
		if err != nil {
			return nil, err
		}
		result, ok := obj["result"]
		if !ok {
			return nil, errors.Annotate(ErrMissingKey, "result")
		}
		return InvocationResult{ID: id, Result: result}, nil

	case TypePing:
		return Ping{}, nil

	default:
		return Other{Kind: typ, Raw: raw}, nil
	}
}

func stringKey(obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", errors.Annotate(ErrMissingKey, key)
	}
	var s string
	if jsonKind(raw) != '"' || json.Unmarshal(raw, &s) != nil {
		return "", errors.Annotatef(ErrExpectingString, "%s=%s", key, raw)
	}
	return s, nil
}

// jsonKind returns first significant byte of JSON value.
func jsonKind(raw json.RawMessage) byte {
	b := bytes.TrimLeft(raw, " \t\r\n")
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
