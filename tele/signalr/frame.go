package signalr

import (
	"bytes"
	"encoding/json"

	"github.com/juju/errors"
)

// RecordSeparator terminates every JSON document on the wire.
const RecordSeparator byte = 0x1E

// SplitFrames cuts one wire message into JSON documents.
// Segments that are not valid JSON are dropped, dropped count is returned
// for stats. Empty segments (trailing separator) are not counted.
func SplitFrames(b []byte) (docs []json.RawMessage, dropped int) {
	parts := bytes.Split(b, []byte{RecordSeparator})
	docs = make([]json.RawMessage, 0, len(parts))
	for _, part := range parts {
		if len(bytes.TrimSpace(part)) == 0 {
			continue
		}
		if !json.Valid(part) {
			dropped++
			continue
		}
		docs = append(docs, json.RawMessage(part))
	}
	return docs, dropped
}

// FrameMarshal encodes v as one JSON document with terminator.
func FrameMarshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Annotate(err, "frame marshal")
	}
	return append(b, RecordSeparator), nil
}
