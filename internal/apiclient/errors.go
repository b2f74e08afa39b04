package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindTransport    Kind = "transport"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindUnexpected   Kind = "unexpected"
)

// FieldError is the list of messages the API reported for one input field.
type FieldError struct {
	Field    string
	Messages []string
}

// Error is every failure the client returns, classified by Kind. Fields keep
// the order the API sent them in.
type Error struct {
	Kind     Kind
	Status   int
	Detail   string
	Fields   []FieldError
	NonField []string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("api %s: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("api %s (%d): %s", e.Kind, e.Status, e.Message(http.StatusText(e.Status)))
	default:
		return fmt.Sprintf("api %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message picks the text to show a user: the first field-specific message,
// then the first non-field message, then fallback.
func (e *Error) Message(fallback string) string {
	for _, f := range e.Fields {
		if len(f.Messages) > 0 && f.Messages[0] != "" {
			return f.Messages[0]
		}
	}
	for _, m := range e.NonField {
		if m != "" {
			return m
		}
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// FieldMessages flattens Fields to the first message per field.
func (e *Error) FieldMessages() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if len(f.Messages) > 0 {
			out[f.Field] = f.Messages[0]
		}
	}
	return out
}

func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// MessageOf is Message for arbitrary errors.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	return fallback
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindUnexpected
	}
}

func newStatusError(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}
	parseErrorBody(e, body)
	return e
}

// parseErrorBody understands the API's error shapes: {"detail": "..."},
// {"error": "..."}, {"non_field_errors": [...]} and {"field": ["..."]}.
// Anything else is left as an empty error with the status intact.
func parseErrorBody(e *Error, body []byte) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return
	}
	if body[0] == '[' {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			e.NonField = append(e.NonField, list...)
		}
		return
	}
	if body[0] != '{' {
		return
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return
		}
		msgs := messagesOf(raw)

		switch key {
		case "detail":
			e.Detail = strings.Join(msgs, " ")
		case "error", "message", "non_field_errors":
			e.NonField = append(e.NonField, msgs...)
		default:
			if len(msgs) > 0 {
				e.Fields = append(e.Fields, FieldError{Field: key, Messages: msgs})
			}
		}
	}
}

func messagesOf(raw json.RawMessage) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	// nested serializer errors, e.g. {"boat": {"name": ["..."]}}
	var nested map[string]json.RawMessage
	if json.Unmarshal(raw, &nested) == nil {
		var out []string
		for _, v := range nested {
			out = append(out, messagesOf(v)...)
		}
		return out
	}
	return nil
}
