package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultFileName         = ".env"
	defaultOverrideFileName = ".local.env"
)

// EnvLoader is a Config backed by os.Getenv after the configuration files have been merged into the environment.
type EnvLoader struct {
	logger logger
}

type logger interface {
	Warnf(format string, a ...any)
	Infof(format string, a ...any)
	Debugf(format string, a ...any)
	Fatalf(format string, a ...any)
}

// envFile is one layer of configuration. Layers later in the list override earlier ones.
type envFile struct {
	path string
	// required layers abort start-up on any error other than a missing file.
	required bool
}

// NewEnvFile loads <folder>/.env, then <folder>/.local.env, then <folder>/.<APP_ENV>.env.
// Variables already present in the process environment always win.
func NewEnvFile(configFolder string, logger logger) Config {
	conf := &EnvLoader{logger: logger}
	conf.read(configFolder)

	return conf
}

func (e *EnvLoader) read(folder string) {
	preset := make(map[string]bool)

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		preset[key] = true
	}

	layers := []envFile{
		{path: filepath.Join(folder, defaultFileName), required: true},
		{path: filepath.Join(folder, defaultOverrideFileName)},
	}

	if appEnv := os.Getenv("APP_ENV"); appEnv != "" {
		layers = append(layers, envFile{path: filepath.Join(folder, fmt.Sprintf(".%s.env", appEnv)), required: true})
	}

	merged := make(map[string]string)

	for _, layer := range layers {
		content, err := godotenv.Read(layer.path)

		switch {
		case err == nil:
			for k, v := range content {
				merged[k] = v
			}

			e.logger.Infof("Loaded config from file: %v", layer.path)
		case errors.Is(err, fs.ErrNotExist):
			e.logger.Debugf("Config file %v not found, skipping", layer.path)
		case layer.required:
			e.logger.Fatalf("Failed to load config from file: %v, Err: %v", layer.path, err)
		default:
			e.logger.Warnf("Ignoring unreadable config file %v: %v", layer.path, err)
		}
	}

	for key, value := range merged {
		if !preset[key] {
			_ = os.Setenv(key, value)
		}
	}
}

func (*EnvLoader) Get(key string) string {
	return os.Getenv(key)
}

func (*EnvLoader) GetOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultValue
}
