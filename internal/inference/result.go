package inference

import "encoding/json"

// Result is the payload published for one evaluated sample.
//
//	{"board":"esp8266","model":"wine","result":1,"iteration":1,"microseconds":120}
type Result struct {
	Board        string  `json:"board"`
	Model        string  `json:"model"`
	Result       float64 `json:"result"`
	Iteration    int     `json:"iteration"`
	Microseconds int64   `json:"microseconds"`

	// Timestamp is Unix epoch milliseconds, omitted when time is unknown.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Marshal encodes the result as JSON.
func (r Result) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseResult decodes a published payload.
func ParseResult(data []byte) (Result, error) {
	var r Result
	err := json.Unmarshal(data, &r)
	return r, err
}
