package registry

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"flightgate.dev/pkg/gateway/config"
)

// defaultService is one row of the built-in service table.
type defaultService struct {
	name    string
	port    int
	timeout time.Duration
	prefix  string
}

//nolint:gochecknoglobals // read-only table
var defaultServices = []defaultService{
	{"AUTH", 3001, 5 * time.Second, "/auth"},
	{"USER", 3002, 5 * time.Second, "/users"},
	{"FLIGHT", 3003, 10 * time.Second, "/flights"}, // GDS lookups are slow
	{"BOOKING", 3004, 8 * time.Second, "/bookings"},
	{"PAYMENT", 3005, 15 * time.Second, "/payments"}, // card processing
	{"ANALYTICS", 3006, 10 * time.Second, "/analytics"},
	{"NOTIFICATION", 3007, 5 * time.Second, "/notifications"},
	{"AUDIT", 3008, 5 * time.Second, "/audit"},
}

// FromConfig builds the registry from GATEWAY_SERVICES_FILE when it is set, otherwise from the
// built-in table with <NAME>_SERVICE_URL and <NAME>_SERVICE_TIMEOUT overrides.
func FromConfig(c config.Config) (*Registry, error) {
	if path := c.Get("GATEWAY_SERVICES_FILE"); path != "" {
		return FromFile(path)
	}

	services := make([]ServiceDescriptor, 0, len(defaultServices))
	routes := make([]Route, 0, len(defaultServices))

	for _, d := range defaultServices {
		timeout, err := config.Duration(c, d.name+"_SERVICE_TIMEOUT", d.timeout)
		if err != nil {
			return nil, err
		}

		services = append(services, ServiceDescriptor{
			LogicalName: d.name,
			DisplayName: strings.ToLower(d.name) + displaySuffix,
			BaseURL:     c.GetOrDefault(d.name+"_SERVICE_URL", "http://localhost:"+strconv.Itoa(d.port)),
			Timeout:     timeout,
		})

		routes = append(routes, Route{Prefix: d.prefix, Service: d.name})
	}

	return New(services, routes)
}

type fileService struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	URL         string   `yaml:"url"`
	Timeout     string   `yaml:"timeout"`
	Prefixes    []string `yaml:"prefixes"`
}

type servicesFile struct {
	Services []fileService `yaml:"services"`
}

// FromFile reads a YAML service table:
//
//	services:
//	  - name: BOOKING
//	    display_name: booking-service
//	    url: http://bookings.internal:3004
//	    timeout: 8s
//	    prefixes: [/bookings]
func FromFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading services file")
	}

	var f servicesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing services file %s", path)
	}

	services := make([]ServiceDescriptor, 0, len(f.Services))

	var routes []Route

	for _, s := range f.Services {
		timeout, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "service %q in %s", s.Name, path)
		}

		services = append(services, ServiceDescriptor{
			LogicalName: s.Name,
			DisplayName: s.DisplayName,
			BaseURL:     s.URL,
			Timeout:     timeout,
		})

		for _, p := range s.Prefixes {
			routes = append(routes, Route{Prefix: p, Service: s.Name})
		}
	}

	return New(services, routes)
}
