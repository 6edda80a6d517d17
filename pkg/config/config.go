// Package config loads smsledger settings from an optional .env file,
// an optional JSON config file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	kJson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default paths, matching the layout of a checked-out data directory.
const (
	DefaultSourceFile      = "data/raw/modified_sms_v2.xml"
	DefaultJSONPath        = "data/processed/sms_records.json"
	DefaultCSVPath         = "data/processed/sms_records.csv"
	DefaultSQLitePath      = "data/processed/sms_records.db"
	DefaultCredentialsFile = "data/credentials.json"
	DefaultAddr            = ":8000"
)

// Raw plugin config keys. In a JSON config file they may hold an object.
const (
	keyReaderConfig = "SMSLEDGER_READER_CONFIG"
	keyWriterConfig = "SMSLEDGER_WRITER_CONFIG"
	keyStoreConfig  = "SMSLEDGER_STORE_CONFIG"
)

// Config holds the application configuration.
type Config struct {
	// Source is the XML export to ingest.
	// Environment variable: SMSLEDGER_SOURCE
	Source string `koanf:"SMSLEDGER_SOURCE"`

	// ReaderPlugin is the name of the reader plugin used by ingest.
	// Environment variable: SMSLEDGER_READER
	ReaderPlugin string `koanf:"SMSLEDGER_READER"`

	// WriterPlugin is the name of the writer plugin used by ingest.
	// Environment variable: SMSLEDGER_WRITER
	WriterPlugin string `koanf:"SMSLEDGER_WRITER"`

	// StorePlugin is the name of the store plugin behind the HTTP API.
	// Environment variable: SMSLEDGER_STORE
	StorePlugin string `koanf:"SMSLEDGER_STORE"`

	// ReaderConfig, WriterConfig and StoreConfig are raw plugin JSON configs.
	// When empty, a default is built from the fields below.
	ReaderConfig string `koanf:"SMSLEDGER_READER_CONFIG"`
	WriterConfig string `koanf:"SMSLEDGER_WRITER_CONFIG"`
	StoreConfig  string `koanf:"SMSLEDGER_STORE_CONFIG"`

	JSONPath   string `koanf:"SMSLEDGER_JSON_PATH"`
	CSVPath    string `koanf:"SMSLEDGER_CSV_PATH"`
	SQLitePath string `koanf:"SMSLEDGER_SQLITE_PATH"`

	// Addr is the HTTP listen address.
	// Environment variable: SMSLEDGER_ADDR
	Addr string `koanf:"SMSLEDGER_ADDR"`

	// CORSOrigins is a comma separated list of allowed origins.
	// Environment variable: SMSLEDGER_CORS_ORIGINS
	CORSOrigins string `koanf:"SMSLEDGER_CORS_ORIGINS"`

	// CredentialsFile is the Google service-account key used by the sheets writer.
	// Environment variable: GOOGLE_CREDENTIALS_FILE
	CredentialsFile string `koanf:"GOOGLE_CREDENTIALS_FILE"`

	Postgres PostgresConfig `koanf:",squash"`
	Sheets   SheetsConfig   `koanf:",squash"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// SheetsConfig holds Google Sheets export configuration.
type SheetsConfig struct {
	// Title is the title for a new Google Sheet (used when creating).
	Title string `koanf:"GSHEETS_TITLE"`
	// ID is the ID of an existing Google Sheet to use.
	ID string `koanf:"GSHEETS_ID"`
	// Name is the name of the sheet/tab within the spreadsheet.
	Name string `koanf:"GSHEETS_NAME"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Source:          DefaultSourceFile,
		ReaderPlugin:    "smsxml",
		WriterPlugin:    "json",
		StorePlugin:     "json",
		JSONPath:        DefaultJSONPath,
		CSVPath:         DefaultCSVPath,
		SQLitePath:      DefaultSQLitePath,
		Addr:            DefaultAddr,
		CORSOrigins:     "*",
		CredentialsFile: DefaultCredentialsFile,
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "smsledger",
			SSLMode:  "disable",
		},
		Sheets: SheetsConfig{
			Title: "SMS Ledger",
			Name:  "Sheet1",
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first if present; configPath, when non-empty, must name a JSON file.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), kJson.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	for key, dst := range map[string]*string{
		keyReaderConfig: &cfg.ReaderConfig,
		keyWriterConfig: &cfg.WriterConfig,
		keyStoreConfig:  &cfg.StoreConfig,
	} {
		raw, err := rawPluginConfig(k, key)
		if err != nil {
			return Config{}, err
		}
		if raw != "" {
			*dst = raw
		}
	}

	return cfg, nil
}

// rawPluginConfig returns an object-valued key re-encoded as JSON.
func rawPluginConfig(k *koanf.Koanf, key string) (string, error) {
	obj, ok := k.Get(key).(map[string]any)
	if !ok {
		return "", nil
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", key, err)
	}
	return string(b), nil
}

// AllowedOrigins returns the configured CORS origins.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// ReaderPluginConfig returns the reader plugin config, building a default when unset.
func (c Config) ReaderPluginConfig() (json.RawMessage, error) {
	if c.ReaderConfig != "" {
		return json.RawMessage(c.ReaderConfig), nil
	}
	switch c.ReaderPlugin {
	case "smsxml":
		return json.Marshal(map[string]any{"filePath": c.Source})
	default:
		return nil, fmt.Errorf("%s is required for reader %q", keyReaderConfig, c.ReaderPlugin)
	}
}

// WriterPluginConfig returns the writer plugin config, building a default when unset.
func (c Config) WriterPluginConfig() (json.RawMessage, error) {
	if c.WriterConfig != "" {
		return json.RawMessage(c.WriterConfig), nil
	}
	return c.buildDefaultConfig(c.WriterPlugin, keyWriterConfig)
}

// StorePluginConfig returns the store plugin config, building a default when unset.
func (c Config) StorePluginConfig() (json.RawMessage, error) {
	if c.StoreConfig != "" {
		return json.RawMessage(c.StoreConfig), nil
	}
	return c.buildDefaultConfig(c.StorePlugin, keyStoreConfig)
}

func (c Config) buildDefaultConfig(plugin, key string) (json.RawMessage, error) {
	var cfg map[string]any
	switch plugin {
	case "json":
		cfg = map[string]any{"filePath": c.JSONPath}
	case "csv":
		cfg = map[string]any{"filePath": c.CSVPath}
	case "sqlite":
		cfg = map[string]any{"path": c.SQLitePath}
	case "memory":
		cfg = map[string]any{}
	case "postgres":
		cfg = map[string]any{
			"host":     c.Postgres.Host,
			"port":     c.Postgres.Port,
			"database": c.Postgres.Database,
			"user":     c.Postgres.User,
			"password": c.Postgres.Password,
			"sslmode":  c.Postgres.SSLMode,
		}
	case "sheets":
		if c.Sheets.ID == "" && c.Sheets.Title == "" {
			return nil, errors.New("either GSHEETS_ID or GSHEETS_TITLE is required")
		}
		cfg = map[string]any{"sheetName": c.Sheets.Name}
		if c.Sheets.Title != "" {
			cfg["sheetTitle"] = c.Sheets.Title
		}
		if c.Sheets.ID != "" {
			cfg["sheetId"] = c.Sheets.ID
		}
	default:
		return nil, fmt.Errorf("%s is required for plugin %q", key, plugin)
	}
	return json.Marshal(cfg)
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
