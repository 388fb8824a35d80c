package logging

import "time"

// Config tunes the router and its sinks.
type Config struct {
	EnabledSinks     []string
	BufferSize       int
	MinimumSeverity  Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

// JSONConfig tunes the newline-delimited JSON file sink.
type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

// ConsoleConfig tunes the human-readable console sink.
type ConsoleConfig struct {
	UseColor bool
}

// DefaultConfig enables the console sink at info severity.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

// HasSink reports whether the named sink is enabled.
func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// CloneFields copies the configured ambient fields.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
