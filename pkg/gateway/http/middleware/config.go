package middleware

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flightgate.dev/pkg/gateway/config"
)

const defaultFrontendURL = "http://localhost:3000"

// GetConfigs maps the ACCESS_CONTROL_* keys onto their header names. The allowed origin falls back
// to FRONTEND_URL and then to the local frontend.
func GetConfigs(c config.Config) map[string]string {
	middlewareConfigs := make(map[string]string)

	allowedCORSHeaders := []string{
		"ACCESS_CONTROL_ALLOW_ORIGIN",
		"ACCESS_CONTROL_ALLOW_HEADERS",
		"ACCESS_CONTROL_ALLOW_METHODS",
		"ACCESS_CONTROL_ALLOW_CREDENTIALS",
		"ACCESS_CONTROL_EXPOSE_HEADERS",
		"ACCESS_CONTROL_MAX_AGE",
	}

	for _, v := range allowedCORSHeaders {
		if val := c.Get(v); val != "" {
			middlewareConfigs[convertHeaderNames(v)] = val
		}
	}

	if _, ok := middlewareConfigs[allowOrigin]; !ok {
		middlewareConfigs[allowOrigin] = c.GetOrDefault("FRONTEND_URL", defaultFrontendURL)
	}

	return middlewareConfigs
}

func convertHeaderNames(header string) string {
	words := strings.Split(header, "_")
	titleCaser := cases.Title(language.Und)

	for i, v := range words {
		words[i] = titleCaser.String(strings.ToLower(v))
	}

	return strings.Join(words, "-")
}
