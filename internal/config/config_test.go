package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	require.NoError(t, c.Validate())
	assert.Equal(t, 12345, c.Port)
	assert.Equal(t, 5*time.Second, c.Linger)
	assert.False(t, c.S3.Enabled())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		Name     string
		Modify   func(c *Config)
		Expected []error
	}{
		{
			Name:   "valid",
			Modify: func(c *Config) {},
		},
		{
			Name:     "port zero",
			Modify:   func(c *Config) { c.Port = 0 },
			Expected: []error{ErrInvalidPort},
		},
		{
			Name:     "port too large",
			Modify:   func(c *Config) { c.Port = 70000 },
			Expected: []error{ErrInvalidPort},
		},
		{
			Name:     "negative linger",
			Modify:   func(c *Config) { c.Linger = -time.Second },
			Expected: []error{ErrInvalidLinger},
		},
		{
			Name:     "bucket without region",
			Modify:   func(c *Config) { c.S3 = S3{Bucket: "logs"} },
			Expected: []error{ErrMissingRegion},
		},
		{
			Name: "several problems",
			Modify: func(c *Config) {
				c.Port = -1
				c.LogLevel = "loud"
			},
			Expected: []error{ErrInvalidPort, ErrInvalidLogLevel},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			// given
			c := Default()
			test.Modify(&c)

			// when
			err := c.Validate()

			// then
			if len(test.Expected) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, expected := range test.Expected {
				assert.ErrorIs(t, err, expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		Name     string
		Input    string
		Expected slog.Level
		WantErr  bool
	}{
		{Name: "debug", Input: "debug", Expected: slog.LevelDebug},
		{Name: "upper case", Input: "WARN", Expected: slog.LevelWarn},
		{Name: "empty is info", Input: "", Expected: slog.LevelInfo},
		{Name: "error", Input: "error", Expected: slog.LevelError},
		{Name: "unknown", Input: "verbose", WantErr: true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			level, err := ParseLevel(test.Input)

			if test.WantErr {
				assert.ErrorIs(t, err, ErrInvalidLogLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.Expected, level)
		})
	}
}
