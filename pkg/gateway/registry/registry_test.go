package registry

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := New([]ServiceDescriptor{
		{LogicalName: "AUTH", DisplayName: "auth-service", BaseURL: "http://auth:3001/", Timeout: 5 * time.Second},
		{LogicalName: "BOOKING", DisplayName: "booking-service", BaseURL: "http://booking:3004", Timeout: 8 * time.Second},
		{LogicalName: "ADMIN", BaseURL: "https://admin:3009", Timeout: time.Second},
	}, []Route{
		{Prefix: "/auth", Service: "AUTH"},
		{Prefix: "/bookings", Service: "BOOKING"},
		{Prefix: "/bookings/admin", Service: "admin"},
	})
	require.NoError(t, err)

	return r
}

func TestRegistry_Resolve(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		desc     string
		name     string
		expected string
	}{
		{"logical name", "BOOKING", "booking-service"},
		{"lower case", "booking", "booking-service"},
		{"display name", "booking-service", "booking-service"},
		{"display name upper case", "AUTH-SERVICE", "auth-service"},
		{"derived display name", "ADMIN", "admin-service"},
	}

	for i, tc := range tests {
		s, err := r.Resolve(tc.name)

		require.NoError(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equal(t, tc.expected, s.DisplayName, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := testRegistry(t)

	_, err := r.Resolve("LOYALTY")

	var unknown ErrorUnknownService

	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode())
	assert.Equal(t, "Service LOYALTY not found", err.Error())
}

func TestRegistry_BaseURLTrailingSlashTrimmed(t *testing.T) {
	s, err := testRegistry(t).Resolve("AUTH")

	require.NoError(t, err)
	assert.Equal(t, "http://auth:3001", s.BaseURL)
}

func TestRegistry_ResolveByPrefix(t *testing.T) {
	r := testRegistry(t)

	s, err := r.ResolveByPrefix("/bookings")
	require.NoError(t, err)
	assert.Equal(t, "BOOKING", s.LogicalName)

	_, err = r.ResolveByPrefix("/booking")
	assert.Equal(t, ErrorUnknownService{Prefix: "/booking"}, err)
}

func TestRegistry_Match(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		path    string
		service string
		prefix  string
	}{
		{"/auth", "AUTH", "/auth"},
		{"/auth/login", "AUTH", "/auth"},
		{"/bookings/42", "BOOKING", "/bookings"},
		{"/bookings/admin", "ADMIN", "/bookings/admin"},
		{"/bookings/admin/refunds", "ADMIN", "/bookings/admin"},
		{"/bookings/administrators", "BOOKING", "/bookings"},
	}

	for i, tc := range tests {
		s, prefix, err := r.Match(tc.path)

		require.NoError(t, err, "TEST[%d], Failed.\n%s", i, tc.path)
		assert.Equal(t, tc.service, s.LogicalName, "TEST[%d], Failed.\n%s", i, tc.path)
		assert.Equal(t, tc.prefix, prefix, "TEST[%d], Failed.\n%s", i, tc.path)
	}
}

func TestRegistry_MatchNeverCrossesSegment(t *testing.T) {
	r := testRegistry(t)

	for _, path := range []string{"/authors", "/authentication/x", "/", "", "/payments/1"} {
		_, _, err := r.Match(path)

		assert.Equal(t, ErrorUnknownService{Path: path}, err, path)
	}
}

func TestRegistry_ServicesAndRoutesKeepOrder(t *testing.T) {
	r := testRegistry(t)

	services := r.Services()
	require.Len(t, services, 3)
	assert.Equal(t, []string{"AUTH", "BOOKING", "ADMIN"},
		[]string{services[0].LogicalName, services[1].LogicalName, services[2].LogicalName})

	routes := r.Routes()
	assert.Equal(t, Route{Prefix: "/bookings/admin", Service: "ADMIN"}, routes[2])

	// callers get copies
	services[0].BaseURL = "http://tampered"
	s, _ := r.Resolve("AUTH")
	assert.Equal(t, "http://auth:3001", s.BaseURL)
}

func TestNew_Validation(t *testing.T) {
	valid := ServiceDescriptor{LogicalName: "AUTH", BaseURL: "http://auth:3001", Timeout: time.Second}

	tests := []struct {
		desc     string
		services []ServiceDescriptor
		routes   []Route
		err      error
	}{
		{"empty name", []ServiceDescriptor{{BaseURL: "http://x", Timeout: time.Second}}, nil, errEmptyName},
		{"duplicate name", []ServiceDescriptor{valid, {LogicalName: "auth-service", BaseURL: "http://y", Timeout: time.Second}},
			nil, errDuplicateService},
		{"relative url", []ServiceDescriptor{{LogicalName: "A", BaseURL: "auth:3001", Timeout: time.Second}}, nil, errInvalidBaseURL},
		{"ftp url", []ServiceDescriptor{{LogicalName: "A", BaseURL: "ftp://auth", Timeout: time.Second}}, nil, errInvalidBaseURL},
		{"zero timeout", []ServiceDescriptor{{LogicalName: "A", BaseURL: "http://auth"}}, nil, errInvalidTimeout},
		{"prefix without slash", []ServiceDescriptor{valid}, []Route{{Prefix: "auth", Service: "AUTH"}}, errInvalidPrefix},
		{"prefix with trailing slash", []ServiceDescriptor{valid}, []Route{{Prefix: "/auth/", Service: "AUTH"}}, errInvalidPrefix},
		{"duplicate prefix", []ServiceDescriptor{valid},
			[]Route{{Prefix: "/auth", Service: "AUTH"}, {Prefix: "/auth", Service: "AUTH"}}, errDuplicatePrefix},
		{"dangling route", []ServiceDescriptor{valid}, []Route{{Prefix: "/users", Service: "USER"}}, errDanglingRoute},
	}

	for i, tc := range tests {
		_, err := New(tc.services, tc.routes)

		assert.ErrorIs(t, err, tc.err, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}
