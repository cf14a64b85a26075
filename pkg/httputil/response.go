package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StandardError response
type StandardError struct {
	Message string `json:"message"`
}

// ResponseJSON response http request with application/json
func ResponseJSON(data interface{}, status int, writer http.ResponseWriter) (err error) {
	writer.Header().Set("Content-type", "application/json")
	writer.WriteHeader(status)

	d, err := json.Marshal(data)
	if err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		d, _ = json.Marshal(StandardError{Message: "ResponseJSON: Failed to response " + err.Error()})
		err = fmt.Errorf("ResponseJSON: Failed to response : %s", err)
	}

	writer.Write(d)
	return
}

// ResponseError response http request with standard error
func ResponseError(message string, status int, writer http.ResponseWriter) (err error) {
	return ResponseJSON(StandardError{Message: message}, status, writer)
}

// HTTPError wraps an HTTP-style status and a user-facing message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a typed error with status code.
func NewHTTPError(code int, message string) error {
	return HTTPError{Code: code, Message: message}
}

// WriteError maps an error to an HTTP response. Typed HTTPErrors keep their
// status code, anything else is reported as a 500.
func WriteError(writer http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if httpErr, ok := err.(HTTPError); ok {
		ResponseError(httpErr.Message, httpErr.Code, writer)
		return
	}
	ResponseError("internal server error", http.StatusInternalServerError, writer)
}
