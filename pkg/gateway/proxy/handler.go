package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	gatewayHTTP "flightgate.dev/pkg/gateway/http"
	"flightgate.dev/pkg/gateway/logging"
)

// DefaultMaxBodySize bounds inbound bodies when no limit is configured.
const DefaultMaxBodySize = 10 << 20 // 10 MiB

type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Handler serves every method under the proxied prefixes.
type Handler struct {
	dispatcher  *Dispatcher
	logger      Logger
	maxBodySize int64
}

// NewHandler returns a Handler reading at most maxBodySize bytes of each body.
// A non-positive maxBodySize selects DefaultMaxBodySize.
func NewHandler(dispatcher *Dispatcher, logger Logger, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	return &Handler{dispatcher: dispatcher, logger: logger, maxBodySize: maxBodySize}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	responder := gatewayHTTP.NewResponder(w, r.Method)

	body, err := h.readBody(w, r)
	if err != nil {
		h.logError(r, err)
		responder.Respond(nil, err)

		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), DispatchRequest{
		RawPath: r.URL.RequestURI(),
		Method:  r.Method,
		Header:  forwardedHeaders(r),
		Body:    body,
	})
	if err != nil {
		// the deadline of the whole request passed, not the timeout of one service
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			err = gatewayHTTP.ErrorRequestTimeout{}
		}

		h.logError(r, err)
		responder.Respond(nil, err)

		return
	}

	responder.Respond(gatewayHTTP.Raw{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.ContentLength > h.maxBodySize {
		return nil, gatewayHTTP.ErrorRequestEntityTooLarge{MaxSize: h.maxBodySize}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, gatewayHTTP.ErrorRequestEntityTooLarge{MaxSize: h.maxBodySize}
		}

		return nil, err
	}

	return body, nil
}

func (h *Handler) logError(r *http.Request, err error) {
	if h.logger == nil {
		return
	}

	if logging.GetLogLevelForError(err) <= logging.INFO {
		h.logger.Infof("%s %s: %v", r.Method, r.URL.Path, err)

		return
	}

	h.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
}

// forwardedHeaders copies the inbound headers and appends the standard proxy headers.
func forwardedHeaders(r *http.Request) http.Header {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := header.Get("X-Forwarded-For"); prior != "" {
			ip = strings.TrimSpace(prior) + ", " + ip
		}

		header.Set("X-Forwarded-For", ip)
	}

	if header.Get("X-Forwarded-Host") == "" && r.Host != "" {
		header.Set("X-Forwarded-Host", r.Host)
	}

	if header.Get("X-Forwarded-Proto") == "" {
		proto := "http"
		if r.TLS != nil {
			proto = "https"
		}

		header.Set("X-Forwarded-Proto", proto)
	}

	return header
}
