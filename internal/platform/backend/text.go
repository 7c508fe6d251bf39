package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Text is a free-text backend field. Endpoints return it either as one
// string or as an array of word-processing lines; both decode to one string.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(b, &lines); err != nil {
		return fmt.Errorf("text field: want string or array of strings")
	}
	*t = Text(strings.Join(lines, "\n"))
	return nil
}

// Flex is an identifier or scalar the backend sends as either a JSON string
// or a number.
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("scalar field: want string or number")
	}
	*f = Flex(n.String())
	return nil
}
