package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "RXDATA_"

// envSettings maps environment variables to the fields they override.
var envSettings = map[string]func(c *Config, value string) error{
	EnvPrefix + "STORE_DRIVER": func(c *Config, v string) error {
		c.Store.Driver = v
		return nil
	},
	EnvPrefix + "STORE_PATH": func(c *Config, v string) error {
		c.Store.Path = v
		return nil
	},
	EnvPrefix + "STORE_DSN": func(c *Config, v string) error {
		c.Store.DSN = v
		return nil
	},
	EnvPrefix + "STORE_WATCH": func(c *Config, v string) error {
		b, err := parseBool(v)
		c.Store.Watch = b
		return err
	},
	EnvPrefix + "STORE_DEBOUNCE": func(c *Config, v string) error {
		c.Store.Debounce = v
		return nil
	},
	EnvPrefix + "LOG_VERBOSITY": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Log.Verbosity = n
		return err
	},
}

// EnvNames returns the recognised environment variable names.
func EnvNames() []string {
	names := make([]string, 0, len(envSettings))
	for name := range envSettings {
		names = append(names, name)
	}
	return names
}

// applyEnv overlays the set environment variables on c.
// Empty values are treated as set.
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for name, apply := range envSettings {
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := apply(c, value); err != nil {
			return &EnvError{Name: name, Value: value, Err: err}
		}
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean")
	}
}
