// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// configFormat represents supported configuration file formats.
type configFormat int

const (
	// configFormatJSON represents JSON configuration format (.json)
	configFormatJSON configFormat = iota
	// configFormatYAML represents YAML configuration format (.yaml, .yml)
	configFormatYAML
)

// Supported MCP transports.
const (
	transportStdio = "stdio"
	transportHTTP  = "http"
)

// Config represents the MCP server configuration structure.
// It contains the MISP connection settings, server bind options, search
// defaults, and AI integration parameters.
//
// The configuration can be loaded from a JSON or YAML file specified by the
// MISP_MCP_CONFIG_FILE environment variable, with defaults applied for any
// missing values and environment variables taking the highest precedence.
// Supported file extensions: .json, .yaml, .yml
type Config struct {
	// MISP: Connection settings for the remote MISP instance
	MISP struct {
		// URL: Absolute URL of the MISP instance, scheme included (MISP_URL env var)
		URL string `json:"url,omitempty" yaml:"url,omitempty"`
		// APIKey: MISP automation key (MISP_API_KEY env var)
		APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
		// VerifySSL: TLS certificate verification toggle, default true (MISP_VERIFY_SSL env var)
		VerifySSL bool `json:"verifySsl" yaml:"verifySsl"`
		// Timeout: Timeout in seconds for MISP API requests (MISP_TIMEOUT_SECONDS env var)
		Timeout int `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
	} `json:"misp" yaml:"misp"`

	// Server: MCP transport bind settings
	Server struct {
		// Host: Bind address for the HTTP transport (MCP_SERVER_HOST env var)
		Host string `json:"host,omitempty" yaml:"host,omitempty"`
		// Port: Bind port for the HTTP transport (MCP_SERVER_PORT env var)
		Port int `json:"port,omitempty" yaml:"port,omitempty"`
		// Transport: "stdio" or "http" (MISP_MCP_TRANSPORT env var)
		Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
	} `json:"server" yaml:"server"`

	// Defaults: Default limits for search operations
	Defaults struct {
		// SearchLimit: Default number of events returned by searches
		SearchLimit int `json:"searchLimit,omitempty" yaml:"searchLimit,omitempty"`
		// AttributeLimit: Default number of attributes returned by listings
		AttributeLimit int `json:"attributeLimit,omitempty" yaml:"attributeLimit,omitempty"`
	} `json:"defaults" yaml:"defaults"`

	// AI: Configuration for sampling/LLM integration
	AI struct {
		// APIKey: API key for AI service authentication (can also be set via MISP_AI_APIKEY env var)
		APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
		// Endpoint: API endpoint URL for AI service (defaults to xAI)
		Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
		// Model: Default AI model to use for event analysis
		Model string `json:"model,omitempty" yaml:"model,omitempty"`
		// Timeout: API timeout in seconds for AI requests
		Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		// MaxTokens: Maximum tokens for AI analysis responses
		MaxTokens int `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
		// Temperature: Sampling temperature for AI responses (0.0 to 1.0)
		Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	} `json:"ai" yaml:"ai"`
}

// configSchema is the JSON Schema that JSON configuration files are validated
// against before unmarshaling, so typos (wrong key, wrong type, out-of-range
// port) fail with a precise message instead of silently falling back to
// defaults. YAML files skip this check; their values are still normalized and
// validated after unmarshaling.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "misp": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "url": {"type": "string"},
        "apiKey": {"type": "string"},
        "verifySsl": {"type": "boolean"},
        "timeoutSeconds": {"type": "integer", "minimum": 1}
      }
    },
    "server": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "host": {"type": "string"},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535},
        "transport": {"type": "string", "enum": ["stdio", "http"]}
      }
    },
    "defaults": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "searchLimit": {"type": "integer", "minimum": 1, "maximum": 50},
        "attributeLimit": {"type": "integer", "minimum": 1, "maximum": 100}
      }
    },
    "ai": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "apiKey": {"type": "string"},
        "endpoint": {"type": "string"},
        "model": {"type": "string"},
        "timeout": {"type": "integer", "minimum": 1},
        "maxTokens": {"type": "integer", "minimum": 1},
        "temperature": {"type": "number", "minimum": 0, "maximum": 2}
      }
    }
  }
}`

// detectConfigFormat determines the configuration file format based on file extension.
// It supports .json, .yaml, and .yml extensions for flexible configuration management.
//
// Parameters:
//   - configPath: Path to the configuration file
//
// Returns:
//   - configFormat: The detected format (configFormatJSON or configFormatYAML)
//
// The function uses case-insensitive extension matching for cross-platform compatibility.
func detectConfigFormat(configPath string) configFormat {
	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		return configFormatYAML
	default:
		return configFormatJSON
	}
}

// validateConfigSchema checks raw JSON configuration data against
// [configSchema] and collects every violation into one error.
func validateConfigSchema(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config file: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("invalid config file: %s", strings.Join(issues, "; "))
}

// unmarshalConfig unmarshals configuration data based on the specified format.
// It supports both JSON and YAML formats for configuration flexibility.
//
// Parameters:
//   - data: Raw configuration file contents
//   - config: Pointer to Config struct to populate
//   - format: The configuration format (configFormatJSON or configFormatYAML)
//
// Returns:
//   - error: Any parsing error encountered during unmarshaling
//
// JSON data is validated against [configSchema] before unmarshaling so that
// malformed files fail with field-level messages.
func unmarshalConfig(data []byte, config *Config, format configFormat) error {
	switch format {
	case configFormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err := validateConfigSchema(data); err != nil {
			return err
		}
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return nil
}

// loadConfig loads MCP server configuration from a JSON or YAML file or applies defaults.
// It sets up default values for the MISP connection, server transport, search limits,
// and AI integration settings.
//
// Parameters:
//   - configPath: Path to the configuration file (optional, can be empty)
//     Supported formats: .json, .yaml, .yml
//
// Returns:
//   - A pointer to the loaded Config struct with defaults applied
//   - An error if the configuration file cannot be read or parsed, or an
//     environment override has an unparseable value
//
// Configuration Priority:
//  1. Default values are set
//  2. MISP_MCP_CONFIG_FILE environment variable is checked if configPath is empty
//  3. Config file values override defaults (if file exists and is valid)
//  4. Environment variables override config file values (MISP_URL, MISP_API_KEY,
//     MISP_VERIFY_SSL, MCP_SERVER_HOST, MCP_SERVER_PORT, MISP_MCP_TRANSPORT,
//     MISP_TIMEOUT_SECONDS, MISP_AI_APIKEY)
//
// The returned Config is not yet validated for required values; callers that
// are about to serve call [Config.Validate] so startup fails fast with a
// message naming the offending variable. Nothing reads the environment after
// this function returns.
func loadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.MISP.VerifySSL = true
	config.MISP.Timeout = 30
	config.Server.Host = "localhost"
	config.Server.Port = 8000
	config.Server.Transport = transportStdio
	config.Defaults.SearchLimit = 10
	config.Defaults.AttributeLimit = 20

	// Set AI defaults
	config.AI.Endpoint = "https://api.x.ai"
	config.AI.Model = "grok-4-1-fast-non-reasoning"
	config.AI.Timeout = 30
	config.AI.MaxTokens = 4096
	config.AI.Temperature = 0.3

	// Check environment variable for config file path if not provided
	if configPath == "" {
		configPath = os.Getenv("MISP_MCP_CONFIG_FILE")
	}

	// Try to load from file if path is provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Detect format and unmarshal accordingly
		format := detectConfigFormat(configPath)
		if err := unmarshalConfig(data, config, format); err != nil {
			return nil, err
		}

		// Validate and set defaults for invalid values
		if config.MISP.Timeout <= 0 {
			config.MISP.Timeout = 30
		}
		if config.Defaults.SearchLimit <= 0 {
			config.Defaults.SearchLimit = 10
		}
		if config.Defaults.AttributeLimit <= 0 {
			config.Defaults.AttributeLimit = 20
		}
		if config.AI.Timeout <= 0 {
			config.AI.Timeout = 30
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variables on top of the config file
// values. Unparseable values fail immediately, naming the variable, rather
// than being silently ignored.
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("MISP_URL"); v != "" {
		config.MISP.URL = v
	}
	if v := os.Getenv("MISP_API_KEY"); v != "" {
		config.MISP.APIKey = v
	}
	if v := os.Getenv("MISP_VERIFY_SSL"); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("configuration error: MISP_VERIFY_SSL must be a boolean, got %q", v)
		}
		config.MISP.VerifySSL = verify
	}
	if v := os.Getenv("MISP_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("configuration error: MISP_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		config.MISP.Timeout = seconds
	}
	if v := os.Getenv("MCP_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("MCP_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("configuration error: MCP_SERVER_PORT must be an integer, got %q", v)
		}
		config.Server.Port = port
	}
	if v := os.Getenv("MISP_MCP_TRANSPORT"); v != "" {
		config.Server.Transport = strings.ToLower(v)
	}

	// Override AI API key from environment if not set in config
	if config.AI.APIKey == "" {
		config.AI.APIKey = os.Getenv("MISP_AI_APIKEY")
	}

	return nil
}

// Validate checks the required connection settings and aborts startup with a
// descriptive message when one is missing or malformed. It is called by the
// serving paths only, so commands that never touch the MISP instance (such as
// printing instructions) work without a configured environment.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MISP.URL) == "" {
		return fmt.Errorf("configuration error: MISP_URL is required (set the MISP_URL environment variable or the misp.url config field)")
	}
	u, err := url.Parse(c.MISP.URL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("configuration error: MISP_URL must be an absolute http(s) URL, got %q", c.MISP.URL)
	}
	if strings.TrimSpace(c.MISP.APIKey) == "" {
		return fmt.Errorf("configuration error: MISP_API_KEY is required (set the MISP_API_KEY environment variable or the misp.apiKey config field)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("configuration error: MCP_SERVER_PORT must be within 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Transport != transportStdio && c.Server.Transport != transportHTTP {
		return fmt.Errorf("configuration error: MISP_MCP_TRANSPORT must be %q or %q, got %q", transportStdio, transportHTTP, c.Server.Transport)
	}
	return nil
}

// ClientConfig converts the MCP layer configuration into the MISP client
// wrapper configuration. The version becomes part of the User-Agent so the
// MISP instance logs identify this adapter.
func (c *Config) ClientConfig(version string) misp.Config {
	return misp.Config{
		BaseURL:   c.MISP.URL,
		APIKey:    c.MISP.APIKey,
		VerifySSL: c.MISP.VerifySSL,
		Timeout:   time.Duration(c.MISP.Timeout) * time.Second,
		UserAgent: "misp-mcp-server/" + version,
	}
}
