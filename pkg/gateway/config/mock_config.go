package config

type mockConfig struct {
	conf map[string]string
}

// NewMockConfig returns a Config that only knows the given keys.
func NewMockConfig(configMap map[string]string) Config {
	if configMap == nil {
		configMap = make(map[string]string)
	}

	return &mockConfig{conf: configMap}
}

func (m *mockConfig) Get(s string) string {
	return m.conf[s]
}

func (m *mockConfig) GetOrDefault(s, d string) string {
	if res, ok := m.conf[s]; ok && res != "" {
		return res
	}

	return d
}
