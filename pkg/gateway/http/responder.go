package http

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Raw is a response that is written to the client as is.
type Raw struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponder creates a new Responder instance from the given http.ResponseWriter.
func NewResponder(w http.ResponseWriter, method string) *Responder {
	return &Responder{w: w, method: method}
}

// Responder encapsulates a http.ResponseWriter and is responsible for crafting structured responses.
type Responder struct {
	w      http.ResponseWriter
	method string
}

// errorBody is the error shape every client of the platform already parses.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Service    string `json:"service,omitempty"`
	Error      string `json:"error"`
}

type statusCodeResponder interface {
	StatusCode() int
	Error() string
}

// serviceError is implemented by errors raised on behalf of one downstream service.
type serviceError interface {
	ServiceName() string
}

// relayer is implemented by errors that carry a downstream response to pass through unchanged.
type relayer interface {
	Relay() Raw
}

// Respond writes data as JSON, or err in the gateway error shape. A Raw value or a relayed
// upstream error is copied to the client byte for byte.
func (r Responder) Respond(data any, err error) {
	if err != nil {
		r.respondError(err)

		return
	}

	switch v := data.(type) {
	case Raw:
		r.writeRaw(v)
	case *Raw:
		r.writeRaw(*v)
	default:
		r.writeJSON(getStatusCode(r.method, data), data)
	}
}

func (r Responder) respondError(err error) {
	var relay relayer
	if errors.As(err, &relay) {
		r.writeRaw(relay.Relay())

		return
	}

	status := http.StatusInternalServerError

	var e statusCodeResponder
	if errors.As(err, &e) && e.StatusCode() != 0 {
		status = e.StatusCode()
	}

	body := errorBody{
		StatusCode: status,
		Message:    err.Error(),
		Error:      http.StatusText(status),
	}

	var s serviceError
	if errors.As(err, &s) {
		body.Service = s.ServiceName()
	}

	r.writeJSON(status, body)
}

func (r Responder) writeRaw(raw Raw) {
	// upstream values replace anything an earlier middleware already set under the same name.
	for k, values := range raw.Header {
		r.w.Header().Del(k)

		for _, v := range values {
			r.w.Header().Add(k, v)
		}
	}

	status := raw.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	r.w.WriteHeader(status)

	if r.method != http.MethodHead && len(raw.Body) > 0 {
		_, _ = r.w.Write(raw.Body)
	}
}

func (r Responder) writeJSON(status int, v any) {
	r.w.Header().Set("Content-Type", "application/json")
	r.w.WriteHeader(status)

	if v == nil || status == http.StatusNoContent {
		return
	}

	_ = json.NewEncoder(r.w).Encode(v)
}

// getStatusCode returns the success status for a gateway-owned endpoint.
func getStatusCode(method string, data any) int {
	switch method {
	case http.MethodPost:
		if data != nil {
			return http.StatusCreated
		}

		return http.StatusAccepted
	case http.MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}
