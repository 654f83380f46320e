package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const Version = "2.0"

// Largest magnitude a float64 id can have and still be an exact integer.
const maxExactFloatInt = 1 << 53

// JSON-RPC and LSP error codes.
const (
	CodeParseError           int64 = -32700
	CodeInvalidRequest       int64 = -32600
	CodeMethodNotFound       int64 = -32601
	CodeInvalidParams        int64 = -32602
	CodeInternalError        int64 = -32603
	CodeServerNotInitialized int64 = -32002
)

// Kind is the shape of a JSON-RPC message.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "invalid"
	}
}

// ID is a request id, either a number or a string.
type ID struct {
	number   int64
	name     string
	isString bool
}

func NewNumberID(n int64) ID {
	return ID{number: n}
}

func NewStringID(s string) ID {
	return ID{name: s, isString: true}
}

func (id ID) String() string {
	if id.isString {
		return strconv.Quote(id.name)
	}

	return strconv.FormatInt(id.number, 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isString {
		return json.Marshal(id.name)
	}

	return []byte(strconv.FormatInt(id.number, 10)), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	parsed, err := idFromResult(gjson.ParseBytes(data))
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

func idFromResult(r gjson.Result) (ID, error) {
	switch r.Type {
	case gjson.String:
		return NewStringID(r.Str), nil
	case gjson.Number:
		if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return NewNumberID(n), nil
		}

		// 1.0 and 1e0 are whole numbers too
		if r.Num == math.Trunc(r.Num) && math.Abs(r.Num) <= maxExactFloatInt {
			return NewNumberID(int64(r.Num)), nil
		}

		return ID{}, fmt.Errorf("%w: id %s is not an integer", ErrInvalidEnvelope, r.Raw)
	default:
		return ID{}, fmt.Errorf("%w: id must be a number or a string", ErrInvalidEnvelope)
	}
}

// PeekID reads the id of a body that may not be a valid message, so an error
// response can still be correlated. It returns nil when there is no usable id.
func PeekID(body []byte) *ID {
	if !gjson.ValidBytes(body) {
		return nil
	}

	r := gjson.GetBytes(body, "id")
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}

	id, err := idFromResult(r)
	if err != nil {
		return nil
	}

	return &id
}

// Error is the error object of a failed response.
type Error struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Message is an incoming message, classified by ParseMessage. Params, Result
// and Error are only set for the kinds that carry them.
type Message struct {
	ID     *ID
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *Error
}

func (m *Message) Kind() Kind {
	switch {
	case m.Method != "" && m.ID != nil:
		return KindRequest
	case m.Method != "":
		return KindNotification
	case m.ID != nil && (m.Result != nil || m.Error != nil):
		return KindResponse
	default:
		return KindInvalid
	}
}

// ParseMessage probes the envelope of a message body without decoding its
// params. Bodies that are not JSON fail with ErrInvalidJSON, bodies that are
// JSON but not a JSON-RPC message fail with ErrInvalidEnvelope. Both are
// wrapped in a *SchemaError.
func ParseMessage(body []byte) (*Message, error) {
	if !gjson.ValidBytes(body) {
		return nil, &SchemaError{Err: ErrInvalidJSON}
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &SchemaError{Err: fmt.Errorf("%w: expected an object", ErrInvalidEnvelope)}
	}

	fields := gjson.GetManyBytes(body, "jsonrpc", "id", "method", "params", "result", "error")
	jsonrpc, id, method, params, result, rpcErr := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	if jsonrpc.Type != gjson.String || jsonrpc.Str != Version {
		return nil, &SchemaError{Err: fmt.Errorf("%w: jsonrpc must be %q", ErrInvalidEnvelope, Version)}
	}

	msg := &Message{}

	if id.Exists() && id.Type != gjson.Null {
		parsed, err := idFromResult(id)
		if err != nil {
			return nil, &SchemaError{Err: err}
		}
		msg.ID = &parsed
	}

	if method.Exists() {
		if method.Type != gjson.String || method.Str == "" {
			return nil, &SchemaError{Err: fmt.Errorf("%w: method must be a non-empty string", ErrInvalidEnvelope)}
		}
		msg.Method = method.Str
	}

	if params.Exists() {
		msg.Params = json.RawMessage(params.Raw)
	}

	if result.Exists() {
		msg.Result = json.RawMessage(result.Raw)
	}

	if rpcErr.Exists() {
		msg.Error = &Error{}
		if err := json.Unmarshal([]byte(rpcErr.Raw), msg.Error); err != nil {
			return nil, &SchemaError{Err: err}
		}
	}

	if msg.Kind() == KindInvalid {
		return nil, &SchemaError{Err: fmt.Errorf("%w: missing method", ErrInvalidEnvelope)}
	}

	return msg, nil
}

// Response answers a request. A nil ID is written as null, which is only
// legal when the request id could not be determined.
type Response struct {
	ID     *ID
	Result json.RawMessage
	Error  *Error
}

// NewResponse builds a successful response. A nil result is written as null.
func NewResponse(id *ID, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("Failed to encode result: %w", err)
	}

	return &Response{ID: id, Result: raw}, nil
}

func NewErrorResponse(id *ID, code int64, message string) *Response {
	return &Response{
		ID:    id,
		Error: &Error{Code: code, Message: message},
	}
}

// MarshalJSON assembles the envelope around the already encoded result so it
// is embedded byte for byte. A response carries either result or error.
func (r *Response) MarshalJSON() ([]byte, error) {
	out := []byte(`{"jsonrpc":"2.0"}`)

	id := []byte("null")
	if r.ID != nil {
		raw, err := r.ID.MarshalJSON()
		if err != nil {
			return nil, err
		}
		id = raw
	}

	out, err := sjson.SetRawBytes(out, "id", id)
	if err != nil {
		return nil, err
	}

	if r.Error != nil {
		raw, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(out, "error", raw)
	}

	result := r.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}

	return sjson.SetRawBytes(out, "result", result)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	msg, err := ParseMessage(data)
	if err != nil {
		return err
	}

	if msg.Kind() != KindResponse {
		return fmt.Errorf("%w: expected a response, got a %s", ErrInvalidEnvelope, msg.Kind())
	}

	*r = Response{ID: msg.ID, Result: msg.Result, Error: msg.Error}
	return nil
}

// Notification is a message that expects no response.
type Notification struct {
	Method string
	Params json.RawMessage
}

func NewNotification(method string, params interface{}) (*Notification, error) {
	n := &Notification{Method: method}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("Failed to encode params for %s: %w", method, err)
		}
		n.Params = raw
	}

	return n, nil
}

func (n *Notification) MarshalJSON() ([]byte, error) {
	out := []byte(`{"jsonrpc":"2.0"}`)

	out, err := sjson.SetBytes(out, "method", n.Method)
	if err != nil {
		return nil, err
	}

	if len(n.Params) == 0 {
		return out, nil
	}

	return sjson.SetRawBytes(out, "params", n.Params)
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	msg, err := ParseMessage(data)
	if err != nil {
		return err
	}

	if msg.Kind() != KindNotification {
		return fmt.Errorf("%w: expected a notification, got a %s", ErrInvalidEnvelope, msg.Kind())
	}

	*n = Notification{Method: msg.Method, Params: msg.Params}
	return nil
}

// Request is an outgoing request, used by clients.
type Request struct {
	ID     ID
	Method string
	Params json.RawMessage
}

func NewRequest(id ID, method string, params interface{}) (*Request, error) {
	r := &Request{ID: id, Method: method}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("Failed to encode params for %s: %w", method, err)
		}
		r.Params = raw
	}

	return r, nil
}

func (r *Request) MarshalJSON() ([]byte, error) {
	id, err := r.ID.MarshalJSON()
	if err != nil {
		return nil, err
	}

	out, err := sjson.SetRawBytes([]byte(`{"jsonrpc":"2.0"}`), "id", id)
	if err != nil {
		return nil, err
	}

	out, err = sjson.SetBytes(out, "method", r.Method)
	if err != nil {
		return nil, err
	}

	if len(r.Params) == 0 {
		return out, nil
	}

	return sjson.SetRawBytes(out, "params", r.Params)
}
