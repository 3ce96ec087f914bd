package types

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// RequestedLine is one {name, count} entry of a bid or a trade offer as sent
// by a caller.
type RequestedLine struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ParseLines decodes a JSON array of requested lines. Anything that is not a
// non-empty array of objects with a non-blank name and a positive integer
// count fails with ErrMalformedInput.
func ParseLines(raw []byte) ([]RequestedLine, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, Errorf(ErrMalformedInput, "item list is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var lines []RequestedLine
	if err := dec.Decode(&lines); err != nil {
		return nil, Errorf(ErrMalformedInput, "item list is not valid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, Errorf(ErrMalformedInput, "unexpected data after item list")
	}
	if len(lines) == 0 {
		return nil, Errorf(ErrMalformedInput, "item list is empty")
	}

	for i, line := range lines {
		if strings.TrimSpace(line.Name) == "" {
			return nil, Errorf(ErrMalformedInput, "item %d: name is required", i)
		}
		if line.Count <= 0 {
			return nil, Errorf(ErrMalformedInput, "item %d (%s): count must be positive", i, line.Name)
		}
	}

	return lines, nil
}

// RawLines carries an item list through a request envelope without parsing
// it. On the wire it is a string holding the JSON list, so a broken list
// still decodes here and fails in ParseLines. A bare JSON array is accepted
// as well.
type RawLines []byte

func (r RawLines) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

func (r *RawLines) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawLines(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], data...)
	return nil
}
