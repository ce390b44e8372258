package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	defaultDBType     = "pg"
	defaultListenAddr = "localhost:8080"
	singleDescription = "Default database connection"
	singleIDSuffix    = "_default"
	envDBConfigs      = "DB_CONFIGS"
	envDBType         = "DB_TYPE"
	envDBConfig       = "DB_CONFIG"
	envMaxRows        = "MCP_MAX_ROWS"
	envQueryTimeout   = "MCP_QUERY_TIMEOUT"
)

// DatabaseConfig is one configured database as supplied by the operator.
type DatabaseConfig struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type        string         `json:"db_type" yaml:"db_type" validate:"required"`
	Description string         `json:"description" yaml:"description"`
	Connection  map[string]any `json:"configuration" yaml:"configuration" validate:"required"`
}

// Settings is the full runtime configuration of the server.
type Settings struct {
	Databases    []DatabaseConfig `yaml:"databases"`
	Transport    string           `yaml:"transport"`
	ListenAddr   string           `yaml:"listen_addr"`
	MetricsAddr  string           `yaml:"metrics_addr"`
	HistorySize  int              `yaml:"history_size"`
	MaxRows      int              `yaml:"max_rows"`
	QueryTimeout time.Duration    `yaml:"query_timeout"`
	WarmSchemas  bool             `yaml:"warm_schemas"`
	Verbose      bool             `yaml:"verbose"`
}

func DefaultSettings() Settings {
	return Settings{
		Transport:   TransportStdio,
		ListenAddr:  defaultListenAddr,
		HistorySize: DefaultHistorySize,
		MaxRows:     DefaultMaxRows,
		WarmSchemas: true,
	}
}

// LoadSettingsFile overlays the YAML settings file at path onto s.
func LoadSettingsFile(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the MCP_* environment variables onto s.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	if v := getenv(envMaxRows); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envMaxRows, v, err)
		}
		s.MaxRows = n
	}
	if v := getenv(envQueryTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envQueryTimeout, v, err)
		}
		s.QueryTimeout = d
	}
	return nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (s *Settings) Validate() error {
	if len(s.Databases) == 0 {
		return errors.New("at least one database must be configured")
	}
	for i := range s.Databases {
		if err := validateStruct(&s.Databases[i]); err != nil {
			return fmt.Errorf("database #%d: %w", i, err)
		}
	}
	switch s.Transport {
	case TransportStdio:
	case TransportHTTP:
		if _, _, err := net.SplitHostPort(s.ListenAddr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", s.ListenAddr, err)
		}
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, s.Transport)
	}
	if s.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(s.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics address %q: %w", s.MetricsAddr, err)
		}
	}
	if s.HistorySize <= 0 {
		return fmt.Errorf("history size must be greater than 0, got %d", s.HistorySize)
	}
	if s.MaxRows <= 0 {
		return fmt.Errorf("max rows must be greater than 0, got %d", s.MaxRows)
	}
	if s.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative, got %s", s.QueryTimeout)
	}
	return nil
}

// DatabaseSource holds the raw database configuration given on the command
// line, each field already defaulted from its environment variable.
type DatabaseSource struct {
	Configs string // JSON array, --db-configs / DB_CONFIGS
	Type    string // --db-type / DB_TYPE
	Config  string // JSON object, --db-config / DB_CONFIG
}

// DatabaseSourceFromEnv fills the empty fields of src from the environment.
func DatabaseSourceFromEnv(src DatabaseSource, getenv func(string) string) DatabaseSource {
	if src.Configs == "" {
		src.Configs = getenv(envDBConfigs)
	}
	if src.Type == "" {
		src.Type = getenv(envDBType)
	}
	if src.Config == "" {
		src.Config = getenv(envDBConfig)
	}
	return src
}

// ResolveDatabases picks the database list: a JSON array wins, then the
// settings file, then a single database.
func ResolveDatabases(src DatabaseSource, fromFile []DatabaseConfig) ([]DatabaseConfig, error) {
	if strings.TrimSpace(src.Configs) != "" {
		return ParseDatabaseConfigs(src.Configs)
	}
	if len(fromFile) > 0 {
		return fromFile, nil
	}
	if strings.TrimSpace(src.Config) == "" {
		return nil, errors.New("no database configured: set DB_CONFIGS, a settings file, or DB_TYPE and DB_CONFIG")
	}
	cfg, err := SingleDatabaseConfig(src.Type, src.Config)
	if err != nil {
		return nil, err
	}
	return []DatabaseConfig{cfg}, nil
}

// ParseDatabaseConfigs decodes a non-empty JSON array of database configs.
func ParseDatabaseConfigs(raw string) ([]DatabaseConfig, error) {
	var configs []DatabaseConfig
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", envDBConfigs, err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%s must be a non-empty JSON array", envDBConfigs)
	}
	return configs, nil
}

// SingleDatabaseConfig builds the one-entry configuration of single-database
// mode. raw may be a JSON object or a JSON string holding one.
func SingleDatabaseConfig(dbType, raw string) (DatabaseConfig, error) {
	if dbType == "" {
		dbType = defaultDBType
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return DatabaseConfig{}, fmt.Errorf("error parsing %s: %w", envDBConfig, err)
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return DatabaseConfig{}, fmt.Errorf("error parsing %s: %w", envDBConfig, err)
		}
	}
	conn, ok := v.(map[string]any)
	if !ok || len(conn) == 0 {
		return DatabaseConfig{}, fmt.Errorf("%s must be a non-empty JSON object", envDBConfig)
	}

	return DatabaseConfig{
		ID:          strings.ToLower(dbType) + singleIDSuffix,
		Type:        dbType,
		Description: singleDescription,
		Connection:  conn,
	}, nil
}
