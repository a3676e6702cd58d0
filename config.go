package nelson

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/BTBurke/nelson/pkg/rules"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatProm = "prom"
)

const defaultID = "nelson"

// Config controls a single nelson command: where samples come from, which rule parameters apply and where
// results go
type Config struct {
	ID              string
	Format          string
	Output          string
	Window          int
	Parallel        bool
	Watch           bool
	Store           string
	FailOnViolation bool
	LogLevel        slog.Level
	Rules           rules.Config

	host         string
	port         string
	useTLS       bool
	errorReports bool
}

// ConfigOption sets a single configuration value.  Options are produced by the command line and YAML parsers
// and may be applied in any order.
type ConfigOption func(c *Config) error

func newConfig(options ...ConfigOption) (Config, []error) {
	c := Config{
		ID:           defaultID,
		Format:       FormatText,
		LogLevel:     slog.LevelWarn,
		Rules:        rules.DefaultConfig(),
		useTLS:       true,
		errorReports: true,
	}

	var errors []error
	for _, option := range options {
		if err := option(&c); err != nil {
			errors = append(errors, err)
		}
	}
	errors = append(errors, c.Rules.Validate()...)

	if len(errors) > 0 {
		return Config{}, errors
	}
	return c, nil
}

// ReportsEnabled is true when a report host is configured
func (c Config) ReportsEnabled() bool {
	return c.host != ""
}

func ID(id string) ConfigOption {
	return func(c *Config) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("id must not be empty")
		}
		c.ID = id
		return nil
	}
}

func Format(format string) ConfigOption {
	return func(c *Config) error {
		switch format {
		case FormatText, FormatJSON, FormatProm:
			c.Format = format
			return nil
		default:
			return fmt.Errorf("unknown output format %q, use one of text, json, prom", format)
		}
	}
}

func Output(path string) ConfigOption {
	return func(c *Config) error {
		c.Output = path
		return nil
	}
}

// Window evaluates only the trailing n samples of the input
func Window(n string) ConfigOption {
	return func(c *Config) error {
		w, err := strconv.Atoi(n)
		if err != nil {
			return fmt.Errorf("could not convert window to integer: %s", n)
		}
		if w < 1 {
			return fmt.Errorf("window must be at least 1, got %d", w)
		}
		c.Window = w
		return nil
	}
}

func Parallel() ConfigOption {
	return func(c *Config) error {
		c.Parallel = true
		return nil
	}
}

func Watch() ConfigOption {
	return func(c *Config) error {
		c.Watch = true
		return nil
	}
}

// Store persists every evaluation to the SQLite database at path
func Store(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("store path must not be empty")
		}
		c.Store = path
		return nil
	}
}

func FailOnViolation() ConfigOption {
	return func(c *Config) error {
		c.FailOnViolation = true
		return nil
	}
}

func LogLevel(level string) ConfigOption {
	return func(c *Config) error {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("unknown log level %q, use one of debug, info, warn, error", level)
		}
		c.LogLevel = l
		return nil
	}
}

// Set overrides one rule parameter from an expression of the form rule.param=value, e.g. rule5.k=2.5
func Set(expr string) ConfigOption {
	return func(c *Config) error {
		rule, param, value, err := parseSetting(expr)
		if err != nil {
			return err
		}
		return c.Rules.Set(rule, param, value)
	}
}

// RuleParams overrides several parameters of several rules at once, e.g. from the rules section of a YAML file
func RuleParams(params map[string]map[string]float64) ConfigOption {
	return func(c *Config) error {
		return c.Rules.SetAll(params)
	}
}

func Host(hostWithPort string) ConfigOption {
	return func(c *Config) error {
		host, port, err := net.SplitHostPort(hostWithPort)
		if err != nil || host == "" || port == "" {
			return fmt.Errorf("unknown host %q, use host:port", hostWithPort)
		}
		c.host = host
		c.port = port
		return nil
	}
}

func Insecure() ConfigOption {
	return func(c *Config) error {
		c.useTLS = false
		return nil
	}
}

func NoErrorReports() ConfigOption {
	return func(c *Config) error {
		c.errorReports = false
		return nil
	}
}

func parseSetting(expr string) (string, string, float64, error) {
	kv := strings.SplitN(expr, "=", 2)
	if len(kv) != 2 {
		return "", "", 0, fmt.Errorf("invalid rule setting %q, should be rule.param=value", expr)
	}
	path := strings.SplitN(strings.TrimSpace(kv[0]), ".", 2)
	if len(path) != 2 {
		return "", "", 0, fmt.Errorf("invalid rule setting %q, should be rule.param=value", expr)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid value in rule setting %q: %w", expr, err)
	}
	return path[0], path[1], v, nil
}
