package signalr_test

import (
	"strings"
	"testing"

	"github.com/evtele/easee/tele/signalr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrames(t *testing.T) {
	t.Parallel()
	const rs = "\x1e"
	cases := []struct {
		name    string
		input   string
		expect  []string
		dropped int
	}{
		{"empty", "", nil, 0},
		{"single", `{"type":6}` + rs, []string{`{"type":6}`}, 0},
		{"two", `{}` + rs + `{"type":6}` + rs, []string{`{}`, `{"type":6}`}, 0},
		{"no-terminator", `{"type":6}`, []string{`{"type":6}`}, 0},
		{"garbage-dropped", `{"a":1}` + rs + `{bad` + rs + `[1]` + rs, []string{`{"a":1}`, `[1]`}, 1},
		{"whitespace-not-counted", " \n" + rs + `{}` + rs + rs, []string{`{}`}, 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			docs, dropped := signalr.SplitFrames([]byte(c.input))
			assert.Equal(t, c.dropped, dropped)
			require.Len(t, docs, len(c.expect))
			for i, d := range docs {
				assert.Equal(t, c.expect[i], string(d))
			}
		})
	}
}

func TestFrameMarshal(t *testing.T) {
	t.Parallel()
	b, err := signalr.FrameMarshal(map[string]interface{}{"protocol": "json", "version": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"protocol":"json","version":1}`+"\x1e", string(b))
	assert.Equal(t, 1, strings.Count(string(b), "\x1e"))

	_, err = signalr.FrameMarshal(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame marshal")
}
