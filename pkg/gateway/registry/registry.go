// Package registry maps logical service names and inbound path prefixes to the downstream
// services the gateway proxies to. A Registry is built once at start-up and never changes.
package registry

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const displaySuffix = "-service"

// ServiceDescriptor is the network address and per-call deadline of one downstream service.
type ServiceDescriptor struct {
	LogicalName string
	DisplayName string
	BaseURL     string
	Timeout     time.Duration
}

// Route binds an inbound path prefix such as "/bookings" to a logical service name.
type Route struct {
	Prefix  string
	Service string
}

// Registry resolves services by name and by path prefix. All methods are safe for
// concurrent use because nothing is mutated after New returns.
type Registry struct {
	services []ServiceDescriptor
	byName   map[string]int
	routes   []Route
	// byLength holds the indexes of routes ordered by descending prefix length.
	byLength []int
	byPrefix map[string]int
}

// New validates services and routes and builds a Registry from them.
func New(services []ServiceDescriptor, routes []Route) (*Registry, error) {
	r := &Registry{
		services: make([]ServiceDescriptor, 0, len(services)),
		byName:   make(map[string]int, len(services)),
		routes:   make([]Route, 0, len(routes)),
		byPrefix: make(map[string]int, len(routes)),
	}

	for _, s := range services {
		if err := validateService(s); err != nil {
			return nil, err
		}

		key := NormalizeName(s.LogicalName)
		if _, ok := r.byName[key]; ok {
			return nil, errors.Wrapf(errDuplicateService, "service %q", s.LogicalName)
		}

		s.LogicalName = key
		if s.DisplayName == "" {
			s.DisplayName = strings.ToLower(key) + displaySuffix
		}

		s.BaseURL = strings.TrimSuffix(s.BaseURL, "/")

		r.byName[key] = len(r.services)
		r.services = append(r.services, s)
	}

	for _, rt := range routes {
		if !strings.HasPrefix(rt.Prefix, "/") || (strings.HasSuffix(rt.Prefix, "/") && rt.Prefix != "/") {
			return nil, errors.Wrapf(errInvalidPrefix, "prefix %q", rt.Prefix)
		}

		if _, ok := r.byPrefix[rt.Prefix]; ok {
			return nil, errors.Wrapf(errDuplicatePrefix, "prefix %q", rt.Prefix)
		}

		key := NormalizeName(rt.Service)
		if _, ok := r.byName[key]; !ok {
			return nil, errors.Wrapf(errDanglingRoute, "prefix %q points to %q", rt.Prefix, rt.Service)
		}

		rt.Service = key

		r.byPrefix[rt.Prefix] = len(r.routes)
		r.routes = append(r.routes, rt)
	}

	r.byLength = make([]int, len(r.routes))
	for i := range r.routes {
		r.byLength[i] = i
	}

	sort.SliceStable(r.byLength, func(i, j int) bool {
		return len(r.routes[r.byLength[i]].Prefix) > len(r.routes[r.byLength[j]].Prefix)
	})

	return r, nil
}

func validateService(s ServiceDescriptor) error {
	if strings.TrimSpace(s.LogicalName) == "" {
		return errEmptyName
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(errInvalidBaseURL, "service %q has url %q", s.LogicalName, s.BaseURL)
	}

	if s.Timeout <= 0 {
		return errors.Wrapf(errInvalidTimeout, "service %q", s.LogicalName)
	}

	return nil
}

// NormalizeName turns "booking-service", "Booking" and "BOOKING" into the same key.
func NormalizeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))

	return strings.TrimSuffix(name, strings.ToUpper(displaySuffix))
}

// Resolve returns the service registered under logicalName. The lookup ignores case and
// accepts the display form, so "booking-service" resolves BOOKING.
func (r *Registry) Resolve(logicalName string) (ServiceDescriptor, error) {
	idx, ok := r.byName[NormalizeName(logicalName)]
	if !ok {
		return ServiceDescriptor{}, ErrorUnknownService{Name: logicalName}
	}

	return r.services[idx], nil
}

// ResolveByPrefix returns the service bound to exactly prefix.
func (r *Registry) ResolveByPrefix(prefix string) (ServiceDescriptor, error) {
	idx, ok := r.byPrefix[prefix]
	if !ok {
		return ServiceDescriptor{}, ErrorUnknownService{Prefix: prefix}
	}

	return r.services[r.byName[r.routes[idx].Service]], nil
}

// Match finds the longest registered prefix of path that ends on a segment boundary:
// "/auth" matches "/auth" and "/auth/login" but never "/authors".
func (r *Registry) Match(path string) (ServiceDescriptor, string, error) {
	for _, idx := range r.byLength {
		prefix := r.routes[idx].Prefix

		if !strings.HasPrefix(path, prefix) {
			continue
		}

		if rest := path[len(prefix):]; rest != "" && rest[0] != '/' && prefix != "/" {
			continue
		}

		return r.services[r.byName[r.routes[idx].Service]], prefix, nil
	}

	return ServiceDescriptor{}, "", ErrorUnknownService{Path: path}
}

// Services returns the registered services in registration order.
func (r *Registry) Services() []ServiceDescriptor {
	out := make([]ServiceDescriptor, len(r.services))
	copy(out, r.services)

	return out
}

// Routes returns the prefix table in registration order.
func (r *Registry) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)

	return out
}
