package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultFieldName     = "content"
	DefaultLogLevel      = "info"
	DefaultPluginTimeout = 5 * time.Second
	DefaultRemoteAddr    = "127.0.0.1:8080"
	DefaultRemotePath    = "/ws"
)

// Format is a config file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Config is the root configuration.
type Config struct {
	Field   FieldConfig   `yaml:"field" toml:"field"`
	Content ContentConfig `yaml:"content" toml:"content"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Plugins PluginsConfig `yaml:"plugins" toml:"plugins"`
	Remote  RemoteConfig  `yaml:"remote" toml:"remote"`

	// Events limits which events are printed or relayed. Empty means all.
	Events []string `yaml:"events" toml:"events" validate:"dive,event_name"`
}

// FieldConfig describes the persisted field. An empty Path keeps the
// field in memory.
type FieldConfig struct {
	Name string `yaml:"name" toml:"name" validate:"required"`
	Path string `yaml:"path" toml:"path"`
}

// ContentConfig sets the initial document, inline or from a file.
type ContentConfig struct {
	Initial string `yaml:"initial" toml:"initial" validate:"excluded_with=File"`
	File    string `yaml:"file" toml:"file"`
}

// LogConfig configures logging. A nil Human picks console output when
// stderr is a terminal.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Human *bool  `yaml:"human" toml:"human"`
}

// PluginsConfig configures the plugin host.
type PluginsConfig struct {
	Timeout        Duration       `yaml:"timeout" toml:"timeout" validate:"gte=0"`
	HandlerTimeout Duration       `yaml:"handler_timeout" toml:"handler_timeout" validate:"gte=0"`
	List           []PluginConfig `yaml:"list" toml:"list" validate:"dive"`
}

// PluginConfig declares one plugin. Exactly one of File and Source is set.
type PluginConfig struct {
	Name        string `yaml:"name" toml:"name" validate:"required"`
	Description string `yaml:"description" toml:"description"`
	Runtime     string `yaml:"runtime" toml:"runtime" validate:"omitempty,runtime"`
	File        string `yaml:"file" toml:"file" validate:"required_without=Source,excluded_with=Source"`
	Source      string `yaml:"source" toml:"source"`
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
}

// RemoteConfig configures the websocket bridge.
type RemoteConfig struct {
	Addr           string   `yaml:"addr" toml:"addr" validate:"hostname_port"`
	Path           string   `yaml:"path" toml:"path" validate:"startswith=/"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// Duration is a time.Duration decoded from strings such as "1500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, decodes and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(path, data, format)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(path))

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("config %s: unsupported extension %q", path, filepath.Ext(path))
	}
}

// Parse decodes data without applying defaults or validating. Unknown keys
// are rejected.
func Parse(source string, data []byte, format Format) (*Config, error) {
	cfg := &Config{}
	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from INKWELL_* environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"INKWELL_LOG_LEVEL", &c.Log.Level},
		{"INKWELL_FIELD_PATH", &c.Field.Path},
		{"INKWELL_REMOTE_ADDR", &c.Remote.Addr},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Field.Name == "" {
		c.Field.Name = DefaultFieldName
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Plugins.Timeout == 0 {
		c.Plugins.Timeout = Duration(DefaultPluginTimeout)
	}
	if c.Remote.Addr == "" {
		c.Remote.Addr = DefaultRemoteAddr
	}
	if c.Remote.Path == "" {
		c.Remote.Path = DefaultRemotePath
	}
	for i := range c.Plugins.List {
		if c.Plugins.List[i].Runtime == "" {
			c.Plugins.List[i].Runtime = "js"
		}
	}
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&c.Field.Path)
	resolve(&c.Content.File)
	for i := range c.Plugins.List {
		resolve(&c.Plugins.List[i].File)
	}
}

// InitialContent returns the inline content or the content file's text.
func (c *Config) InitialContent() (string, error) {
	if c.Content.File == "" {
		return c.Content.Initial, nil
	}
	data, err := os.ReadFile(c.Content.File)
	if err != nil {
		return "", fmt.Errorf("read content %s: %w", c.Content.File, err)
	}
	return string(data), nil
}

// LoadSource returns the plugin source, reading File when set.
func (p PluginConfig) LoadSource() (string, error) {
	if p.File == "" {
		return p.Source, nil
	}
	data, err := os.ReadFile(p.File)
	if err != nil {
		return "", fmt.Errorf("read plugin %s: %w", p.Name, err)
	}
	return string(data), nil
}
