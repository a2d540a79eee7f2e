package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrTransport wraps failures to reach the server at all.
var ErrTransport = errors.New("api: transport failure")

// Error is a non-2xx response. Detail and Fields come from the JSON body; both
// are empty when the body was missing or not JSON.
type Error struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Detail)
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Sprintf("api: %d: %s: %s", e.StatusCode, names[0], e.FieldMessage(names[0]))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// FieldMessage returns the first message reported for field, or "".
func (e *Error) FieldMessage(field string) string {
	msgs := e.Fields[field]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

func parseError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		return e
	}
	for key, value := range raw {
		if key == "detail" {
			var detail string
			if json.Unmarshal(value, &detail) == nil {
				e.Detail = detail
			}
			continue
		}

		var one string
		if json.Unmarshal(value, &one) == nil {
			e.addField(key, one)
			continue
		}
		var many []string
		if json.Unmarshal(value, &many) == nil {
			for _, m := range many {
				e.addField(key, m)
			}
		}
	}
	return e
}

func (e *Error) addField(name, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[name] = append(e.Fields[name], msg)
}

// AsError unwraps err into an *Error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}
