package service

import "net/http"

// requestDropHeaders are recomputed by the outbound transport. Accept-Encoding is left to the
// transport as well so that it negotiates compression itself and hands back decoded bodies.
var requestDropHeaders = []string{"Host", "Connection", "Content-Length", "Transfer-Encoding", "Accept-Encoding"}

// responseDropHeaders describe the downstream framing, which the gateway replaces with its own.
var responseDropHeaders = []string{"Content-Encoding", "Transfer-Encoding", "Connection", "Content-Length"}

// SanitizeRequestHeaders returns a copy of h that is safe to send downstream.
// Authorization and every other end-to-end header are kept as they are.
func SanitizeRequestHeaders(h http.Header) http.Header {
	return without(h, requestDropHeaders)
}

// FilterResponseHeaders returns a copy of h without the downstream framing headers.
func FilterResponseHeaders(h http.Header) http.Header {
	return without(h, responseDropHeaders)
}

func without(h http.Header, names []string) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}

	for _, name := range names {
		out.Del(name)
	}

	return out
}
