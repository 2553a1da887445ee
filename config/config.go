// Package config loads machine configuration from a Starlark file.
package config

import (
	"os"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Config collects every tunable of the machine.
type Config struct {
	Host   string // Service hostname.
	Port   int    // Service TCP port.
	Path   string // Request path.
	Model  string // Model named in the request body.
	APIKey string // Bearer token.

	PollInterval time.Duration // Scheduler poll period.
	Verbose      bool          // Log state transitions.
}

// Default returns the stock configuration. The API key is taken from the
// OPENAI_API_KEY environment variable when present.
func Default() Config {
	return Config{
		Host:         "api.openai.com",
		Port:         443,
		Path:         "/v1/chat/completions",
		Model:        "gpt-4o-mini",
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		PollInterval: time.Millisecond,
	}
}

// Load evaluates a Starlark configuration file on top of the defaults.
// Every setting is a plain top-level assignment, and all are optional.
func Load(filename string) (c Config, err error) {
	c = Default()

	var data []byte
	data, err = os.ReadFile(filename)
	if err != nil {
		return
	}

	err = c.parse(filename, data)

	return
}

func (c *Config) parse(filename string, data []byte) (err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	dict, err := starlark.ExecFileOptions(&opts, &thread, filename, data, starlark.StringDict{})
	if err != nil {
		return
	}

	for _, setting := range []struct {
		name  string
		value *string
	}{
		{"host", &c.Host},
		{"path", &c.Path},
		{"model", &c.Model},
		{"api_key", &c.APIKey},
	} {
		if err = getString(dict, setting.name, setting.value); err != nil {
			return
		}
	}

	if err = getInt(dict, "port", &c.Port); err != nil {
		return
	}

	var pollMs int
	if err = getInt(dict, "poll_interval_ms", &pollMs); err != nil {
		return
	}
	if pollMs > 0 {
		c.PollInterval = time.Duration(pollMs) * time.Millisecond
	}

	err = getBool(dict, "verbose", &c.Verbose)

	return
}

func getString(dict starlark.StringDict, name string, out *string) (err error) {
	value, ok := dict[name]
	if !ok {
		return
	}

	str, ok := starlark.AsString(value)
	if !ok {
		err = ErrSetting(name)
		return
	}
	*out = str

	return
}

func getInt(dict starlark.StringDict, name string, out *int) (err error) {
	value, ok := dict[name]
	if !ok {
		return
	}

	if err = starlark.AsInt(value, out); err != nil {
		err = ErrSetting(name)
	}

	return
}

func getBool(dict starlark.StringDict, name string, out *bool) (err error) {
	value, ok := dict[name]
	if !ok {
		return
	}

	flag, ok := value.(starlark.Bool)
	if !ok {
		err = ErrSetting(name)
		return
	}
	*out = bool(flag)

	return
}
