package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdoutOutputForFunc(t *testing.T) {
	out := StdoutOutputForFunc(func() {
		fmt.Fprint(os.Stdout, "gateway listening")
	})

	assert.Equal(t, "gateway listening", out)
}

func TestStderrOutputForFunc(t *testing.T) {
	out := StderrOutputForFunc(func() {
		fmt.Fprint(os.Stderr, "upstream refused")
	})

	assert.Equal(t, "upstream refused", out)
}

func TestNewServerConfigs(t *testing.T) {
	configs := NewServerConfigs(t)

	assert.Equal(t, fmt.Sprint(configs.HTTPPort), os.Getenv("HTTP_PORT"))
	assert.Equal(t, fmt.Sprintf("http://localhost:%d", configs.MetricsPort), configs.MetricsHost)
}
