// Package protocol defines the JSON wire format spoken over the bridge socket.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Request represents one inbound command.
// A decoded Request is treated as read-only by everything downstream.
type Request struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	Params    map[string]string `json:"params,omitempty"`
	Timestamp Timestamp         `json:"timestamp"`
	AuthToken string            `json:"authToken,omitempty"`
}

// Param returns the named parameter, or "" if absent.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// HasParam reports whether the parameter was supplied with a non-empty value.
func (r *Request) HasParam(name string) bool {
	return r.Params[name] != ""
}

// Response represents the single reply to a Request.
type Response struct {
	ID     string              `json:"id"`
	Action string              `json:"action"`
	Status Status              `json:"status"`
	Data   map[string]string   `json:"data,omitempty"`
	Items  []map[string]string `json:"items,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// MarshalJSON always writes "data" on SUCCESS, as {} when empty. Failures
// carry it only when non-empty.
func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	out := struct {
		plain
		Data *map[string]string `json:"data,omitempty"`
	}{plain: plain(r)}
	if r.Status == StatusSuccess || len(r.Data) > 0 {
		data := r.Data
		if data == nil {
			data = map[string]string{}
		}
		out.Data = &data
	}
	return json.Marshal(out)
}

// Status is the outcome class of a Response.
type Status string

// Status values
const (
	StatusSuccess        Status = "SUCCESS"
	StatusInvalidRequest Status = "INVALID_REQUEST"
	StatusUnauthorized   Status = "UNAUTHORIZED"
	StatusNotFound       Status = "NOT_FOUND"
	StatusError          Status = "ERROR"
	StatusInternalError  Status = "INTERNAL_ERROR"
)

// Error messages fixed by the protocol.
const (
	MsgInvalidFormat     = "Invalid request format"
	MsgAuthFailed        = "Authentication failed"
	MsgRateLimited       = "Rate limit exceeded"
	MsgTimedOut          = "Request timed out"
	MsgUnknownActionTmpl = "Unknown action: %s"
)

// Timestamp is the caller-supplied request time.
// Agents send it either as a JSON string or as a JSON integer; both decode to
// the same decimal text, which is what the auth token is computed over.
type Timestamp string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or integer: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("timestamp must be an integer: %w", err)
	}
	*t = Timestamp(n.String())
	return nil
}

// NewRequest creates a new unsigned request.
func NewRequest(id, action string, params map[string]string, ts Timestamp) *Request {
	return &Request{
		ID:        id,
		Action:    action,
		Params:    params,
		Timestamp: ts,
	}
}

// NewSuccessResponse creates a successful response for req.
// A nil data map is replaced by an empty one.
func NewSuccessResponse(req *Request, data map[string]string) *Response {
	if data == nil {
		data = map[string]string{}
	}
	return &Response{
		ID:     req.ID,
		Action: req.Action,
		Status: StatusSuccess,
		Data:   data,
	}
}

// NewErrorResponse creates a failure response for req.
// status must not be StatusSuccess.
func NewErrorResponse(req *Request, status Status, msg string) *Response {
	if msg == "" {
		msg = string(status)
	}
	return &Response{
		ID:     req.ID,
		Action: req.Action,
		Status: status,
		Error:  msg,
	}
}

// NewInvalidRequestResponse creates an INVALID_REQUEST response.
func NewInvalidRequestResponse(req *Request, msg string) *Response {
	return NewErrorResponse(req, StatusInvalidRequest, msg)
}

// NewUnknownActionResponse creates the response for an unregistered action.
func NewUnknownActionResponse(req *Request) *Response {
	return NewInvalidRequestResponse(req, fmt.Sprintf(MsgUnknownActionTmpl, req.Action))
}

// NewMalformedResponse creates the response for a payload that could not be
// decoded. id is a fresh correlation id since the caller's could not be read.
func NewMalformedResponse(id string) *Response {
	return &Response{
		ID:     id,
		Status: StatusInvalidRequest,
		Error:  MsgInvalidFormat,
	}
}

// OK reports whether the response status is SUCCESS.
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}
