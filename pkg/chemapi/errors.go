package chemapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// GenericMessage is shown when a failure carries no readable payload.
const GenericMessage = "Something went wrong. Please try again."

// RequestError is any failed round trip: a non-2xx response, or a transport
// failure, in which case Status is 0 and Err is set.
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Payload []byte
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message())
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Messages flattens a structured payload such as
// {"username": ["Username already taken."], "password": ["Too short."]}
// into its strings, keeping the order the backend sent the fields in.
func (e *RequestError) Messages() []string {
	msgs, _ := flattenMessages(e.Payload)
	return msgs
}

// Message is the single user-facing string for this failure.
func (e *RequestError) Message() string {
	if msgs := e.Messages(); len(msgs) > 0 {
		return strings.Join(msgs, " ")
	}
	return GenericMessage
}

// ErrorField returns the payload's "error" string, which the upload, detail
// and report endpoints use, or "" when there is none.
func (e *RequestError) ErrorField() string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Payload, &body); err != nil {
		return ""
	}
	return body.Error
}

func (e *RequestError) NotFound() bool {
	return e.Status == 404
}

func flattenMessages(raw []byte) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}

	var out []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, false
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		out = appendMessages(out, v)
	}
	return out, true
}

func appendMessages(out []string, v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t != "" {
			out = append(out, t)
		}
	case float64, bool:
		out = append(out, fmt.Sprint(t))
	case []interface{}:
		for _, item := range t {
			out = appendMessages(out, item)
		}
	case map[string]interface{}:
		// nested objects lose their order once decoded; sort for stable output
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = appendMessages(out, t[k])
		}
	}
	return out
}
