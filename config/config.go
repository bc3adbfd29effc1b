// Package config loads the server configuration: defaults, then an optional
// YAML file, then BASTRO_* environment variables. Flags are applied on top
// by the CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/freekieb7/bastro/validation"
)

const (
	TransportTCP = "tcp"
	TransportNet = "net"
)

// Mount binds a folder to a URL prefix.
type Mount struct {
	URL string `yaml:"url"`
	Dir string `yaml:"dir"`
}

func (m Mount) String() string {
	return m.URL + "=" + m.Dir
}

// ParseMount reads the url=dir form used on the command line.
func ParseMount(value string) (Mount, error) {
	url, dir, ok := strings.Cut(value, "=")
	if !ok || url == "" || dir == "" {
		return Mount{}, fmt.Errorf("config: mount %q is not of the form url=dir", value)
	}
	return Mount{URL: url, Dir: dir}, nil
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

type Config struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"`
	// IdleTimeout bounds unanswered connections; zero waits for the client.
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MethodMismatch string        `yaml:"method_mismatch"`
	NotFoundBody   string        `yaml:"not_found_body"`

	Pages  []Mount `yaml:"pages"`
	Assets []Mount `yaml:"assets"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func DefaultConfig() Config {
	return Config{
		Port:         8000,
		Transport:    TransportTCP,
		NotFoundBody: "<h1>Page not found</h1>",
		Pages:        []Mount{{URL: "/", Dir: "./public/pages"}},
		Assets:       []Mount{{URL: "/styles", Dir: "./public/styles"}},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bastro",
		},
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// when empty) and the environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config: parse %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	set := func(key string, apply func(string) error) {
		if v := os.Getenv(key); v != "" && err == nil {
			if applyErr := apply(v); applyErr != nil {
				err = errors.Wrapf(applyErr, "config: %s", key)
			}
		}
	}
	str := func(target *string) func(string) error {
		return func(v string) error { *target = v; return nil }
	}

	set("BASTRO_HOST", str(&c.Host))
	set("BASTRO_PORT", func(v string) (err error) { c.Port, err = strconv.Atoi(v); return err })
	set("BASTRO_TRANSPORT", str(&c.Transport))
	set("BASTRO_IDLE_TIMEOUT", func(v string) (err error) { c.IdleTimeout, err = time.ParseDuration(v); return err })
	set("BASTRO_METHOD_MISMATCH", str(&c.MethodMismatch))
	set("BASTRO_NOT_FOUND_BODY", str(&c.NotFoundBody))
	set("BASTRO_LOG_LEVEL", str(&c.Log.Level))
	set("BASTRO_LOG_FORMAT", str(&c.Log.Format))
	set("BASTRO_LOG_FILE", str(&c.Log.File))
	set("BASTRO_TELEMETRY_ENABLED", func(v string) (err error) { c.Telemetry.Enabled, err = strconv.ParseBool(v); return err })
	set("BASTRO_TELEMETRY_ENDPOINT", str(&c.Telemetry.Endpoint))

	return err
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	data := map[string]any{
		"host":            c.Host,
		"port":            c.Port,
		"transport":       c.Transport,
		"idle_timeout":    c.IdleTimeout,
		"method_mismatch": c.MethodMismatch,
		"log.level":       c.Log.Level,
		"log.format":      c.Log.Format,
	}
	rules := map[string][]string{
		"host":            {},
		"port":            {"port"},
		"transport":       {"required", "one_of:" + TransportTCP + "|" + TransportNet},
		"idle_timeout":    {"duration"},
		"method_mismatch": {"one_of:hang|not_found"},
		"log.level":       {"one_of:debug|info|warn|error"},
		"log.format":      {"one_of:text|json"},
	}

	addMounts := func(kind string, mounts []Mount) {
		for index, mount := range mounts {
			prefix := fmt.Sprintf("%s[%d]", kind, index)
			data[prefix+".url"] = mount.URL
			rules[prefix+".url"] = []string{"required", "url_path"}
			data[prefix+".dir"] = mount.Dir
			rules[prefix+".dir"] = []string{"required"}
		}
	}
	addMounts("pages", c.Pages)
	addMounts("assets", c.Assets)

	return validation.ValidateMap(data, rules).Err()
}
