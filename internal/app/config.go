package app

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"netroom/logging"
)

// Config is the YAML-backed server configuration. Every field has a usable
// default so an empty file (or no file) runs the demo games locally.
type Config struct {
	// Addr is the listen address for the HTTP surface.
	Addr string `yaml:"addr"`

	Logging LoggingConfig `yaml:"logging"`
	Games   GamesConfig   `yaml:"games"`
}

// LoggingConfig selects sinks for the structured event router.
type LoggingConfig struct {
	// Sinks enables named sinks; "console" and "json" are known.
	Sinks []string `yaml:"sinks"`
	// JSONPath is the NDJSON file the json sink appends to.
	JSONPath string `yaml:"json_path"`
	// MinSeverity filters events below the named level (debug, info, warn,
	// error).
	MinSeverity string `yaml:"min_severity"`
}

// GamesConfig tunes the bundled demo definitions.
type GamesConfig struct {
	Gridloot GridlootConfig `yaml:"gridloot"`
}

// GridlootConfig mirrors gridloot.Config for the YAML file.
type GridlootConfig struct {
	Bots int        `yaml:"bots"`
	Loot [][3]int32 `yaml:"loot"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() Config {
	return Config{
		Addr: ":8080",
		Logging: LoggingConfig{
			Sinks:       []string{"console"},
			MinSeverity: "info",
		},
		Games: GamesConfig{
			Gridloot: GridlootConfig{
				Bots: 1,
				Loot: [][3]int32{{2, 0, 10}, {5, 5, 25}, {-3, 4, 5}},
			},
		},
	}
}

// LoadConfig reads the YAML file at path, layered over the defaults, then
// applies environment overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultAppConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if addr := os.Getenv("NETROOM_ADDR"); addr != "" {
		c.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Addr = ":" + port
		}
	}
	if path := os.Getenv("NETROOM_LOG_JSON"); path != "" {
		c.Logging.JSONPath = path
		if !contains(c.Logging.Sinks, "json") {
			c.Logging.Sinks = append(c.Logging.Sinks, "json")
		}
	}
}

// RouterConfig translates the YAML logging section into the event router's
// configuration.
func (c Config) RouterConfig() logging.Config {
	out := logging.DefaultConfig()
	if len(c.Logging.Sinks) > 0 {
		out.EnabledSinks = append([]string(nil), c.Logging.Sinks...)
	}
	out.JSON.FilePath = c.Logging.JSONPath
	switch c.Logging.MinSeverity {
	case "debug":
		out.MinimumSeverity = logging.SeverityDebug
	case "", "info":
		out.MinimumSeverity = logging.SeverityInfo
	case "warn":
		out.MinimumSeverity = logging.SeverityWarn
	case "error":
		out.MinimumSeverity = logging.SeverityError
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
