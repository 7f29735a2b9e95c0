package signalr_test

import (
	"encoding/json"
	"testing"

	"github.com/evtele/easee/tele/signalr"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		expect signalr.Message
	}{
		{"empty", `{}`, signalr.Empty{}},
		{"ping", `{"type":6}`, signalr.Ping{}},
		{"invocation", `{"type":1,"target":"ProductUpdate","arguments":[{"id":1},"x"]}`,
			signalr.Invocation{Target: "ProductUpdate", Arguments: []json.RawMessage{
				json.RawMessage(`{"id":1}`), json.RawMessage(`"x"`)}}},
		{"invocation-no-args", `{"type":1,"target":"T","arguments":[]}`,
			signalr.Invocation{Target: "T", Arguments: []json.RawMessage{}}},
		{"result", `{"type":3,"invocationId":"0","result":null}`,
			signalr.InvocationResult{ID: "0", Result: json.RawMessage(`null`)}},
		{"result-object", `{"type":3,"invocationId":"7","result":{"ok":true}}`,
			signalr.InvocationResult{ID: "7", Result: json.RawMessage(`{"ok":true}`)}},
		{"close", `{"type":7}`, signalr.Other{Kind: signalr.TypeClose, Raw: json.RawMessage(`{"type":7}`)}},
		{"stream-item", `{"type":2,"item":1}`, signalr.Other{Kind: signalr.TypeStreamItem, Raw: json.RawMessage(`{"type":2,"item":1}`)}},
		{"unknown-type", `{"type":42}`, signalr.Other{Kind: 42, Raw: json.RawMessage(`{"type":42}`)}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m, err := signalr.Parse(json.RawMessage(c.input))
			require.NoError(t, err)
			assert.Equal(t, c.expect, m)
			assert.Equal(t, c.expect.Type(), m.Type())
		})
	}
}

func TestParseError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		expect error
	}{
		{"array", `[1,2]`, signalr.ErrExpectingObject},
		{"string", `"hello"`, signalr.ErrExpectingObject},
		{"null", `null`, signalr.ErrExpectingObject},
		{"missing-type", `{"target":"x"}`, signalr.ErrMissingType},
		{"server-error", `{"error":"Handshake was canceled."}`, signalr.ErrMissingType},
		{"type-string", `{"type":"1"}`, signalr.ErrTypeNotANumber},
		{"type-negative", `{"type":-1}`, signalr.ErrTypeNotANumber},
		{"type-null", `{"type":null}`, signalr.ErrTypeNotANumber},
		{"type-bool", `{"type":true}`, signalr.ErrTypeNotANumber},
		{"type-float", `{"type":1.5}`, signalr.ErrTypeNotANumber},
		{"invocation-no-target", `{"type":1,"arguments":[]}`, signalr.ErrMissingKey},
		{"invocation-target-number", `{"type":1,"target":5,"arguments":[]}`, signalr.ErrExpectingString},
		{"invocation-no-arguments", `{"type":1,"target":"x"}`, signalr.ErrMissingKey},
		{"invocation-arguments-object", `{"type":1,"target":"x","arguments":{}}`, signalr.ErrExpectingArray},
		{"result-no-id", `{"type":3,"result":1}`, signalr.ErrMissingKey},
		{"result-id-number", `{"type":3,"invocationId":0,"result":1}`, signalr.ErrExpectingString},
		{"result-missing", `{"type":3,"invocationId":"0"}`, signalr.ErrMissingKey},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m, err := signalr.Parse(json.RawMessage(c.input))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Equal(t, c.expect, errors.Cause(err), errors.ErrorStack(err))
		})
	}
}

func TestParseServerErrorText(t *testing.T) {
	t.Parallel()
	_, err := signalr.Parse(json.RawMessage(`{"error":"Handshake was canceled."}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Handshake was canceled.")
}
