package payload

import (
	"bytes"
	"encoding/json"
)

// EncodeJSON renders p as a single line JSON object with the keys
// "timestamp" and "data" in this order. HTML characters are kept as is.
// On failure nothing is returned besides the error.
func EncodeJSON(p Payload) (string, error) {
	var w bytes.Buffer
	enc := json.NewEncoder(&w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&p); err != nil {
		return "", &EncodeError{Err: err}
	}
	return string(bytes.TrimSuffix(w.Bytes(), []byte{'\n'})), nil
}
