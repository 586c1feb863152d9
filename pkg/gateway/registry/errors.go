package registry

import (
	"errors"
	"fmt"
	"net/http"

	"flightgate.dev/pkg/gateway/logging"
)

var (
	errEmptyName        = errors.New("service name must not be empty")
	errDuplicateService = errors.New("service registered twice")
	errInvalidBaseURL   = errors.New("service url must be an absolute http(s) url")
	errInvalidTimeout   = errors.New("service timeout must be positive")
	errInvalidPrefix    = errors.New("route prefix must start with / and must not end with /")
	errDuplicatePrefix  = errors.New("route prefix registered twice")
	errDanglingRoute    = errors.New("route points to an unregistered service")
)

// ErrorUnknownService is returned when a name, prefix or path does not resolve to a registered service.
// It is raised before any outbound call is made.
type ErrorUnknownService struct {
	Name   string
	Prefix string
	Path   string
}

func (e ErrorUnknownService) Error() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("Service %s not found", e.Name)
	case e.Prefix != "":
		return fmt.Sprintf("No service registered for prefix %s", e.Prefix)
	default:
		return fmt.Sprintf("No service registered for path %s", e.Path)
	}
}

func (ErrorUnknownService) StatusCode() int {
	return http.StatusNotFound
}

func (ErrorUnknownService) LogLevel() logging.Level {
	return logging.INFO
}
