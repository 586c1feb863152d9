package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level          Level
		expectedString string
	}{
		{DEBUG, levelDEBUG},
		{INFO, levelINFO},
		{NOTICE, levelNOTICE},
		{WARN, levelWARN},
		{ERROR, levelERROR},
		{FATAL, levelFATAL},
		{Level(99), ""},
	}

	for i, tc := range tests {
		assert.Equal(t, tc.expectedString, tc.level.String(), "TEST[%d], Failed.\n", i)
	}
}

func TestLevelColor(t *testing.T) {
	tests := []struct {
		level         Level
		expectedColor uint
	}{
		{ERROR, 31},
		{FATAL, 31},
		{WARN, 33},
		{NOTICE, 33},
		{INFO, 36},
		{DEBUG, 36},
		{Level(99), 37},
	}

	for i, tc := range tests {
		assert.Equal(t, tc.expectedColor, tc.level.color(), "TEST[%d], Failed.\n", i)
	}
}

func TestGetLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		level Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Notice", NOTICE},
		{"WARN", WARN},
		{"error", ERROR},
		{"FATAL", FATAL},
		{"verbose", INFO},
		{"", INFO},
	}

	for i, tc := range tests {
		assert.Equal(t, tc.level, GetLevelFromString(tc.input), "TEST[%d], Failed.\n", i)
	}
}

func TestLevel_MarshalJSON(t *testing.T) {
	b, err := WARN.MarshalJSON()

	assert.NoError(t, err)
	assert.Equal(t, `"WARN"`, string(b))
}
