package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/apifetch/internal/constants"
	"github.com/oshokin/apifetch/internal/logger"
	"github.com/oshokin/apifetch/internal/utils"
)

// Config holds all configuration settings.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// DefaultHeaders are sent with every request.
	DefaultHeaders map[string]string `mapstructure:"default_headers" yaml:"default_headers,omitempty"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent,omitempty"`
	// Timeout is the whole-exchange timeout (e.g., "30s", "1m").
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// MaxLogLength caps request and response dumps in debug logs (e.g., "1MiB").
	MaxLogLength string `mapstructure:"max_log_length" yaml:"max_log_length"`
	// MaxErrorBodySize caps how much of a non-JSON error body is kept (e.g., "64KiB").
	MaxErrorBodySize string `mapstructure:"max_error_body_size" yaml:"max_error_body_size"`
	// ConfigPath is the file the configuration was read from, empty when defaults were used.
	ConfigPath string `mapstructure:"-" yaml:"-"`
	// ParsedTimeout is the parsed request timeout.
	ParsedTimeout time.Duration `mapstructure:"-" yaml:"-"`
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level `mapstructure:"-" yaml:"-"`
	// ParsedMaxLogLength is the parsed dump cap in bytes.
	ParsedMaxLogLength uint64 `mapstructure:"-" yaml:"-"`
	// ParsedMaxErrorBodySize is the parsed error body cap in bytes.
	ParsedMaxErrorBodySize int64 `mapstructure:"-" yaml:"-"`
}

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".apifetch.yaml"

	// DefaultMaxLogLength is the default maximum size (in bytes) of a logged dump.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = "60s"

	// DefaultLogLevel is the default logging verbosity.
	DefaultLogLevel = "info"

	// DefaultMaxErrorBodySize is the default cap for non-JSON error bodies.
	DefaultMaxErrorBodySize = "64KiB"

	// envPrefix prefixes environment variables overriding config keys (APIFETCH_BASE_URL).
	envPrefix = "APIFETCH"

	// headersKey is the only nested key.
	headersKey = "default_headers"
)

// Static error definitions for better error handling.
var (
	// ErrEmptyBaseURL indicates that the base URL is missing.
	ErrEmptyBaseURL = errors.New("base URL cannot be empty")
	// ErrInvalidBaseURL indicates that the base URL is not an absolute URL.
	ErrInvalidBaseURL = errors.New("base URL must be an absolute URL with scheme and host")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidTimeout indicates that the timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be positive")
	// ErrInvalidMaxErrorBodySize indicates that the error body cap is zero.
	ErrInvalidMaxErrorBodySize = errors.New("max_error_body_size must be positive")
	// ErrUnknownConfigKey indicates that a key is not a known setting.
	ErrUnknownConfigKey = errors.New("unknown config key")
	// ErrConfigNotMapping indicates that the config file root is not a YAML mapping.
	ErrConfigNotMapping = errors.New("config file root must be a mapping")
)

// knownKeys lists every top-level setting.
//
//nolint:gochecknoglobals // Read-only lookup table.
var knownKeys = []string{
	"base_url",
	headersKey,
	"user_agent",
	"timeout",
	"log_level",
	"max_log_length",
	"max_error_body_size",
}

// LoadConfig loads configuration settings from a YAML file.
// An empty filename means DefaultConfigFilename, which may be absent:
// defaults are used then. A named file that does not exist is an error.
func LoadConfig(configFilename string) (*Config, error) {
	explicit := configFilename != ""
	if !explicit {
		configFilename = DefaultConfigFilename
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configFilename)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := configFilename

	exists, err := utils.IsFileExist(configFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	switch {
	case exists:
		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config from file: %w", err)
		}
	case explicit:
		return nil, fmt.Errorf("failed to read config from file: %w", os.ErrNotExist)
	default:
		configPath = ""
	}

	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConfigPath = configPath

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault(headersKey, map[string]string{})
	v.SetDefault("user_agent", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("max_log_length", humanize.IBytes(DefaultMaxLogLength))
	v.SetDefault("max_error_body_size", DefaultMaxErrorBodySize)
}

// ValidateConfig checks the configuration for validity and sets derived fields.
func ValidateConfig(cfg *Config) error {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return ErrEmptyBaseURL
	}

	parsedBaseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return fmt.Errorf("%w: '%s'", ErrInvalidBaseURL, cfg.BaseURL)
	}

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	cfg.ParsedTimeout, err = time.ParseDuration(strings.TrimSpace(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("failed to parse timeout: %w", err)
	}

	if cfg.ParsedTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// Zero or empty falls back to the default dump length.
	cfg.ParsedMaxLogLength = DefaultMaxLogLength

	if maxLogLength := strings.TrimSpace(cfg.MaxLogLength); maxLogLength != "" && maxLogLength != "0" {
		cfg.ParsedMaxLogLength, err = humanize.ParseBytes(maxLogLength)
		if err != nil {
			return fmt.Errorf("failed to parse max log length: %w", err)
		}
	}

	parsedMaxErrorBodySize, err := humanize.ParseBytes(strings.TrimSpace(cfg.MaxErrorBodySize))
	if err != nil {
		return fmt.Errorf("failed to parse max error body size: %w", err)
	}

	if parsedMaxErrorBodySize == 0 {
		return ErrInvalidMaxErrorBodySize
	}

	// io.LimitReader accepts only int64.
	cfg.ParsedMaxErrorBodySize = utils.SafeUint64ToInt64(parsedMaxErrorBodySize)

	return nil
}

// ValidateKey checks that key names a setting.
// Headers are addressed as "default_headers.<Name>".
func ValidateKey(key string) error {
	path := strings.SplitN(key, ".", 2) //nolint:mnd // Only one level of nesting exists.
	if !slices.Contains(knownKeys, path[0]) {
		return fmt.Errorf("%w: '%s'", ErrUnknownConfigKey, key)
	}

	nested := len(path) == 2 //nolint:mnd // Key and header name.
	if nested != (path[0] == headersKey) || (nested && strings.TrimSpace(path[1]) == "") {
		return fmt.Errorf("%w: '%s'", ErrUnknownConfigKey, key)
	}

	return nil
}

// SaveConfigValue sets one key in the config file while preserving the original format and order.
// The file is created when it does not exist.
func SaveConfigValue(configFile, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if configFile == "" {
		configFile = DefaultConfigFilename
	}

	var node yaml.Node

	// Read the original file content.
	originalContent, err := os.ReadFile(configFile)

	switch {
	case err == nil:
		// Parse YAML while preserving order using yaml.Node.
		if err = yaml.Unmarshal(originalContent, &node); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// File doesn't exist, start from an empty document.
	default:
		return fmt.Errorf("failed to read config file: %w", err)
	}

	mapNode, err := documentMapping(&node)
	if err != nil {
		return err
	}

	setNodeValue(mapNode, strings.SplitN(key, ".", 2), value) //nolint:mnd // See ValidateKey.

	// Marshal back to YAML (preserves order).
	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// documentMapping returns the root mapping of a document node, creating it when the document is empty.
func documentMapping(node *yaml.Node) (*yaml.Node, error) {
	if node.Kind == 0 {
		node.Kind = yaml.DocumentNode
	}

	if len(node.Content) == 0 {
		node.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}

	// The root node is a document node, content[0] is the actual map.
	mapNode := node.Content[0]
	if mapNode.Kind != yaml.MappingNode {
		return nil, ErrConfigNotMapping
	}

	return mapNode, nil
}

// setNodeValue sets path to value inside a mapping node, appending missing keys.
func setNodeValue(mapNode *yaml.Node, path []string, value string) {
	// Iterate through key-value pairs (stored as alternating nodes).
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		keyNode := mapNode.Content[i]
		valueNode := mapNode.Content[i+1]

		if keyNode.Value != path[0] {
			continue
		}

		if len(path) > 1 {
			if valueNode.Kind != yaml.MappingNode {
				*valueNode = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			}

			setNodeValue(valueNode, path[1:], value)

			return
		}

		// Update the value while preserving style.
		*valueNode = yaml.Node{
			Kind:        yaml.ScalarNode,
			Tag:         "!!str",
			Value:       value,
			Style:       valueNode.Style,
			LineComment: valueNode.LineComment,
		}

		return
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: path[0]}

	if len(path) > 1 {
		child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setNodeValue(child, path[1:], value)
		mapNode.Content = append(mapNode.Content, keyNode, child)

		return
	}

	mapNode.Content = append(mapNode.Content, keyNode, &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: value,
		Style: yaml.DoubleQuotedStyle,
	})
}

// Render returns the settings as YAML.
func (c *Config) Render() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}
