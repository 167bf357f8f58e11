package kodi

import "fmt"

// RequestError is returned for any failed host RPC: transport failures,
// non-200 responses, and JSON-RPC error objects alike.
type RequestError struct {
	Method  string
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}
