// Package apiresp writes the JSON envelope shared by every API handler:
// {ok, data, error{code, message, details}, meta{request_id}}.
package apiresp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

var statusCodes = map[int]string{
	http.StatusBadRequest:            "invalid_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusUnprocessableEntity:   "unprocessable_entity",
	http.StatusTooManyRequests:       "rate_limited",
	http.StatusInternalServerError:   "internal_error",
	http.StatusServiceUnavailable:    "unavailable",
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	Write(w, r, status, true, data, "")
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	Write(w, r, status, false, nil, msg)
}

// WriteErrorDetails is WriteError with a machine-readable payload, such as
// per-row import failures.
func WriteErrorDetails(w http.ResponseWriter, r *http.Request, status int, msg string, details interface{}) {
	env := newEnvelope(r, status, false, nil, msg)
	env.Error.Details = details
	encode(w, status, env)
}

func Write(w http.ResponseWriter, r *http.Request, status int, ok bool, data interface{}, errMsg string) {
	encode(w, status, newEnvelope(r, status, ok, data, errMsg))
}

func newEnvelope(r *http.Request, status int, ok bool, data interface{}, errMsg string) Envelope {
	env := Envelope{OK: ok, Meta: Meta{RequestID: middleware.GetReqID(r.Context())}}
	if ok {
		env.Data = data
		return env
	}
	if errMsg == "" {
		errMsg = http.StatusText(status)
	}
	env.Error = &ErrorPayload{Code: codeFromStatus(status), Message: errMsg}
	return env
}

func encode(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func codeFromStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if status >= 200 && status < 300 {
		return ""
	}
	return "error"
}
