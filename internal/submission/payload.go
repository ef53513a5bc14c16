package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the "value" member of a structured submission: a single string or a list
type Payload struct {
	Values []string
	Single bool
}

// StringPayload wraps one string value
func StringPayload(v string) Payload {
	return Payload{Values: []string{v}, Single: true}
}

// ListPayload wraps a list of values
func ListPayload(values ...string) Payload {
	return Payload{Values: values}
}

// UnmarshalJSON accepts a string, an array, or null.
// Array elements that are not strings keep their JSON text.
func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*p = Payload{}
		return nil

	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = StringPayload(s)
		return nil

	case len(data) > 0 && data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, elem := range raw {
			var s string
			if err := json.Unmarshal(elem, &s); err == nil {
				values = append(values, s)
				continue
			}
			values = append(values, string(bytes.TrimSpace(elem)))
		}
		*p = ListPayload(values...)
		return nil
	}

	return fmt.Errorf("submission value must be a string or an array, got %s", data)
}

// MarshalJSON writes the payload back in the shape it was read
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Single {
		return json.Marshal(p.Values[0])
	}
	if p.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Values)
}

// Request is a structured submission body
type Request struct {
	Value Payload `json:"value"`
}

// DecodeRequest parses a structured submission body
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("invalid submission body: %w", err)
	}
	return req, nil
}
