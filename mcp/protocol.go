package mcp

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC protocol constants used by the MCP transport layer.
const JSONRPCVersion = "2.0"

// RequestMessage represents a JSON-RPC 2.0 request that expects a response.
type RequestMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NotificationMessage represents a JSON-RPC 2.0 notification with no ID.
type NotificationMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ResponseMessage represents a JSON-RPC 2.0 response to a request.
type ResponseMessage struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// ErrorObject represents a JSON-RPC 2.0 error payload.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// envelope is the subset of fields needed to classify an incoming message.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// isNotification reports whether the message carried no usable id.
func (e envelope) isNotification() bool {
	return len(e.ID) == 0 || string(e.ID) == "null"
}

// NewRequestMessage constructs a request envelope for the supplied method.
func NewRequestMessage(id any, method string, params any) (RequestMessage, error) {
	payload, err := marshalParams(params)
	if err != nil {
		return RequestMessage{}, err
	}
	return RequestMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  payload,
	}, nil
}

// NewNotificationMessage constructs a notification envelope for the method.
func NewNotificationMessage(method string, params any) (NotificationMessage, error) {
	payload, err := marshalParams(params)
	if err != nil {
		return NotificationMessage{}, err
	}
	return NotificationMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  payload,
	}, nil
}

// SuccessResponse builds a success response with the provided result payload.
func SuccessResponse(id, result any) ResponseMessage {
	return ResponseMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// ErrorResponse builds a response containing the supplied error object.
func ErrorResponse(id any, code int, message string, data ...any) ResponseMessage {
	var extra any
	if len(data) > 0 {
		extra = data[0]
	}
	return ResponseMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &ErrorObject{
			Code:    code,
			Message: message,
			Data:    extra,
		},
	}
}

// ensureVersion validates that a decoded message has the expected jsonrpc value.
func ensureVersion(v string) error {
	if v == JSONRPCVersion {
		return nil
	}
	if v == "" {
		return fmt.Errorf("missing jsonrpc version")
	}
	return fmt.Errorf("unsupported jsonrpc version: %s", v)
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return raw, nil
}

// Short names used by handlers.
type (
	Request      = RequestMessage
	Response     = ResponseMessage
	Notification = NotificationMessage
)
