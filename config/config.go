// Package config loads tabconv settings from HCL or YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/darianmavgo/tabconv/converters"
	"github.com/darianmavgo/tabconv/converters/sqlgen"
	"github.com/darianmavgo/tabconv/logger"
	"github.com/darianmavgo/tabconv/model"
)

// Config represents the application configuration.
type Config struct {
	BatchSize       int        `hcl:"batch_size,optional" yaml:"batch_size"`
	Namespaces      []string   `hcl:"namespaces,optional" yaml:"namespaces"`
	TableName       string     `hcl:"table_name,optional" yaml:"table_name"`
	Delimiter       string     `hcl:"delimiter,optional" yaml:"delimiter"`
	SanitizeNames   bool       `hcl:"sanitize_names,optional" yaml:"sanitize_names"`
	DecimalType     string     `hcl:"decimal_type,optional" yaml:"decimal_type"`
	Dialect         string     `hcl:"dialect,optional" yaml:"dialect"`
	DateLayout      string     `hcl:"date_layout,optional" yaml:"date_layout"`
	RequireExisting bool       `hcl:"require_existing,optional" yaml:"require_existing"`
	Log             *LogConfig `hcl:"log,block" yaml:"log"`
}

// LogConfig is the log block.
type LogConfig struct {
	Level    string `hcl:"level,optional" yaml:"level"`
	Encoding string `hcl:"encoding,optional" yaml:"encoding"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	opts := converters.DefaultOptions()
	return &Config{
		BatchSize:  opts.BatchSize,
		Namespaces: opts.Namespaces,
		Dialect:    opts.Dialect,
		DateLayout: opts.DateLayout,
		Log:        defaultLog(),
	}
}

func defaultLog() *LogConfig {
	d := logger.DefaultConfig()
	return &LogConfig{Level: d.Level, Encoding: d.Encoding}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the configuration from an HCL file, or a YAML file when the extension
// is .yaml or .yml. Settings the file omits keep their defaults.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(content, path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse config file: %s", diags.Error())
		}
		cfg.Log = nil
		diags = gohcl.DecodeBody(file.Body, nil, cfg)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
		}
	}
	cfg.fillLog()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillLog() {
	d := defaultLog()
	if c.Log == nil {
		c.Log = d
		return
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Level
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = d.Encoding
	}
}

// Validate checks values the converters cannot recover from.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize)
	}
	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if c.Dialect != "" {
		if _, ok := sqlgen.Lookup(c.Dialect); !ok {
			return fmt.Errorf("unknown dialect %q", c.Dialect)
		}
	}
	return nil
}

// Options converts the configuration into converter options.
func (c *Config) Options() *converters.Options {
	opts := converters.DefaultOptions()
	if c.BatchSize > 0 {
		opts.BatchSize = c.BatchSize
	}
	if c.Namespaces != nil {
		opts.Namespaces = c.Namespaces
	}
	opts.TableName = c.TableName
	if c.Delimiter != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(c.Delimiter)
	}
	opts.SanitizeNames = c.SanitizeNames
	opts.DecimalType = c.DecimalType
	if c.Dialect != "" {
		opts.Dialect = c.Dialect
	}
	if c.DateLayout != "" {
		opts.DateLayout = c.DateLayout
	}
	return opts
}

// Logger returns the logger configuration, with verbose forcing debug level.
func (c *Config) Logger(verbose bool) logger.Config {
	cfg := logger.DefaultConfig()
	if c.Log != nil {
		if c.Log.Level != "" {
			cfg.Level = c.Log.Level
		}
		if c.Log.Encoding != "" {
			cfg.Encoding = c.Log.Encoding
		}
	}
	if verbose {
		cfg.Level = "debug"
	}
	return cfg
}

// Detector returns the format detector the configuration asks for.
func (c *Config) Detector() converters.Detector {
	return converters.Detector{RequireExisting: c.RequireExisting}
}

// Export writes the configuration to the specified file, in YAML when the extension
// says so and HCL otherwise.
func Export(path string, cfg *Config) error {
	var content []byte
	if isYAML(path) {
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		content = b
	} else {
		content = encodeHCL(cfg)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(content)
	if err != nil {
		return fmt.Errorf("failed to write config to file: %w", err)
	}

	return nil
}

func encodeHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	root.SetAttributeValue("batch_size", cty.NumberIntVal(int64(cfg.BatchSize)))
	if len(cfg.Namespaces) > 0 {
		vals := make([]cty.Value, len(cfg.Namespaces))
		for i, ns := range cfg.Namespaces {
			vals[i] = cty.StringVal(ns)
		}
		root.SetAttributeValue("namespaces", cty.ListVal(vals))
	}
	if cfg.TableName != "" {
		root.SetAttributeValue("table_name", cty.StringVal(cfg.TableName))
	}
	if cfg.Delimiter != "" {
		root.SetAttributeValue("delimiter", cty.StringVal(cfg.Delimiter))
	}
	root.SetAttributeValue("sanitize_names", cty.BoolVal(cfg.SanitizeNames))
	if cfg.DecimalType != "" {
		root.SetAttributeValue("decimal_type", cty.StringVal(cfg.DecimalType))
	}
	root.SetAttributeValue("dialect", cty.StringVal(cfg.Dialect))
	layout := cfg.DateLayout
	if layout == "" {
		layout = model.DateLayout
	}
	root.SetAttributeValue("date_layout", cty.StringVal(layout))
	root.SetAttributeValue("require_existing", cty.BoolVal(cfg.RequireExisting))

	if cfg.Log != nil {
		root.AppendNewline()
		log := root.AppendNewBlock("log", nil).Body()
		log.SetAttributeValue("level", cty.StringVal(cfg.Log.Level))
		log.SetAttributeValue("encoding", cty.StringVal(cfg.Log.Encoding))
	}
	return f.Bytes()
}
