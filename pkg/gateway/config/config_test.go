package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	conf := NewMockConfig(map[string]string{
		"MILLIS":   "5000",
		"GO_STYLE": "1m30s",
		"ZERO":     "0",
		"NEGATIVE": "-2s",
		"GARBAGE":  "soon",
	})

	tests := []struct {
		desc     string
		key      string
		expected time.Duration
		wantErr  bool
	}{
		{"plain integer is milliseconds", "MILLIS", 5 * time.Second, false},
		{"go duration syntax", "GO_STYLE", 90 * time.Second, false},
		{"unset falls back to default", "UNSET", 3 * time.Second, false},
		{"zero is rejected", "ZERO", 0, true},
		{"negative is rejected", "NEGATIVE", 0, true},
		{"unparsable is rejected", "GARBAGE", 0, true},
	}

	for i, tc := range tests {
		d, err := Duration(conf, tc.key, 3*time.Second)

		if tc.wantErr {
			assert.Error(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
			continue
		}

		assert.NoError(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equal(t, tc.expected, d, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestInt(t *testing.T) {
	conf := NewMockConfig(map[string]string{"N": "7", "BAD": "x", "NEG": "-1"})

	v, err := Int(conf, "N", 1)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = Int(conf, "MISSING", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = Int(conf, "BAD", 1)
	assert.Error(t, err)

	_, err = Int(conf, "NEG", 1)
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	conf := NewMockConfig(map[string]string{"ON": "true", "OFF": "0", "ODD": "maybe"})

	assert.True(t, Bool(conf, "ON", false))
	assert.False(t, Bool(conf, "OFF", true))
	assert.True(t, Bool(conf, "ODD", true))
	assert.False(t, Bool(conf, "MISSING", false))
}
