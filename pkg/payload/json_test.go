package payload

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	testCases := []struct {
		name    string
		payload Payload
		expect  string
	}{
		{
			name:    "simple",
			payload: Payload{Timestamp: 1000, Data: "abc"},
			expect:  `{"timestamp":1000,"data":"abc"}`,
		},
		{
			name:    "empty data",
			payload: Payload{Timestamp: 1727185238},
			expect:  `{"timestamp":1727185238,"data":""}`,
		},
		{
			name:    "max timestamp",
			payload: Payload{Timestamp: 4294967295, Data: "x"},
			expect:  `{"timestamp":4294967295,"data":"x"}`,
		},
		{
			name:    "quote",
			payload: Payload{Timestamp: 1, Data: `say "hi"`},
			expect:  `{"timestamp":1,"data":"say \"hi\""}`,
		},
		{
			name:    "backslash",
			payload: Payload{Timestamp: 1, Data: `C:\tmp`},
			expect:  `{"timestamp":1,"data":"C:\\tmp"}`,
		},
		{
			name:    "control characters",
			payload: Payload{Timestamp: 1, Data: "a\nb\tc\x01"},
			expect:  `{"timestamp":1,"data":"a\nb\tc\u0001"}`,
		},
		{
			name:    "special characters",
			payload: Payload{Timestamp: 1727185237, Data: "@#$%^&()<>"},
			expect:  `{"timestamp":1727185237,"data":"@#$%^&()<>"}`,
		},
		{
			name:    "unicode",
			payload: Payload{Timestamp: 2, Data: "héllo 中"},
			expect:  `{"timestamp":2,"data":"héllo 中"}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := EncodeJSON(tc.payload)
			require.NoError(t, err)
			require.Equal(t, tc.expect, out)
			require.NotContains(t, out, "\n")

			var fields map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(out), &fields))
			require.Len(t, fields, 2)
			require.True(t, strings.HasPrefix(out, `{"timestamp":`))

			var decoded Payload
			require.NoError(t, json.Unmarshal([]byte(out), &decoded))
			require.Equal(t, tc.payload, decoded)
		})
	}
}

func TestEncodeJSONLength(t *testing.T) {
	out, err := EncodeJSON(Payload{Timestamp: 1727185234, Data: "Hello, world!"})
	require.NoError(t, err)
	require.Len(t, out, 47)
}

func TestDecodeEncodeScenario(t *testing.T) {
	frame := mustMarshal(t, Payload{Timestamp: 1000, Data: "abc"})
	p, err := Decode(frame)
	require.NoError(t, err)
	out, err := EncodeJSON(p)
	require.NoError(t, err)
	require.Equal(t, `{"timestamp":1000,"data":"abc"}`, out)
}
