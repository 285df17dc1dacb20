package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DB      DBConfig      `yaml:"-"`
	Server  ServerConfig  `yaml:"-"`
	Sync    SyncConfig    `yaml:"sync"`
	Source  SourceConfig  `yaml:"source"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DBType represents database type
type DBType string

const (
	DBTypePostgreSQL DBType = "postgres"
	DBTypeSQLite     DBType = "sqlite"
	DBTypeMemory     DBType = "memory"
)

// DBConfig holds database configuration
type DBConfig struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	// Path is the database file used when Type is sqlite.
	Path string
}

// SyncConfig holds settings for the reconciliation engine
type SyncConfig struct {
	BatchSize        int                 `yaml:"batch_size"`
	ChunkSize        int                 `yaml:"chunk_size"`
	MinPopulation    int64               `yaml:"min_population"`
	Countries        []string            `yaml:"countries"`
	Locales          []string            `yaml:"locales"`
	ExcludedLocales  []string            `yaml:"excluded_locales"`
	NullableLocale   bool                `yaml:"nullable_locale"`
	CityFeatureCodes []string            `yaml:"city_feature_codes"`
	Kinds            []string            `yaml:"kinds"`
	Translations     bool                `yaml:"translations"`
	StrictReferences bool                `yaml:"strict_references"`
	ProgressEvery    int                 `yaml:"progress_every"`
	CountLines       bool                `yaml:"count_lines"`
	UpdatableColumns map[string][]string `yaml:"updatable_columns"`
}

// SourceConfig describes where the GeoNames dump files come from
type SourceConfig struct {
	Dir       string `yaml:"dir"`
	BaseURL   string `yaml:"base_url"`
	Download  bool   `yaml:"download"`
	KeepFiles bool   `yaml:"keep_files"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// DefaultCityFeatureCodes are the populated-place codes accepted as cities.
var DefaultCityFeatureCodes = []string{"PPL", "PPLA", "PPLA2", "PPLA3", "PPLA4", "PPLC", "PPLG", "PPLS", "PPLX"}

// DefaultExcludedLocales are the GeoNames pseudo-locales. Their rows hold
// links and codes rather than names.
var DefaultExcludedLocales = []string{"link", "post", "iata", "icao", "faac", "abbr", "wkdt", "unlc"}

// AllKinds lists entity kinds in dependency order.
var AllKinds = []string{"continents", "countries", "divisions", "cities"}

// DSN returns the database connection string
func (c DBConfig) DSN() string {
	switch c.Type {
	case DBTypeMemory:
		if c.Name != "" && c.Name != "geonames" {
			return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", c.Name)
		}
		return "file::memory:?cache=shared&_foreign_keys=on"
	case DBTypeSQLite:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Path)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// IsMemory returns true if using in-memory database
func (c DBConfig) IsMemory() bool {
	return c.Type == DBTypeMemory
}

// IsSQLite returns true for both file-backed and in-memory SQLite
func (c DBConfig) IsSQLite() bool {
	return c.Type == DBTypeMemory || c.Type == DBTypeSQLite
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// Load loads configuration from environment variables and, when CONFIG_FILE
// is set, overlays the YAML file on top of them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbType := DBType(getEnv("DB_TYPE", "memory"))
	if dbType != DBTypePostgreSQL && dbType != DBTypeMemory && dbType != DBTypeSQLite {
		dbType = DBTypeMemory
	}

	config := &Config{
		DB: DBConfig{
			Type:     dbType,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "geonames"),
			Password: getEnv("DB_PASSWORD", "geonames_password"),
			Name:     getEnv("DB_NAME", "geonames"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "geonames.db"),
		},
		Server: ServerConfig{
			Port: getEnv("APP_PORT", "8080"),
		},
		Sync: SyncConfig{
			BatchSize:        getEnvAsInt("SYNC_BATCH_SIZE", 1000),
			ChunkSize:        getEnvAsInt("SYNC_CHUNK_SIZE", 1000),
			MinPopulation:    int64(getEnvAsInt("SYNC_MIN_POPULATION", 500)),
			Countries:        upper(getEnvAsSlice("SYNC_COUNTRIES")),
			Locales:          getEnvAsSliceDefault("SYNC_LOCALES", []string{"*"}),
			ExcludedLocales:  getEnvAsSliceDefault("SYNC_EXCLUDED_LOCALES", DefaultExcludedLocales),
			NullableLocale:   getEnvAsBool("SYNC_NULLABLE_LOCALE", true),
			CityFeatureCodes: getEnvAsSliceDefault("SYNC_CITY_FEATURE_CODES", DefaultCityFeatureCodes),
			Kinds:            getEnvAsSliceDefault("SYNC_KINDS", AllKinds),
			Translations:     getEnvAsBool("SYNC_TRANSLATIONS", true),
			StrictReferences: getEnvAsBool("SYNC_STRICT_REFERENCES", true),
			ProgressEvery:    getEnvAsInt("SYNC_PROGRESS_EVERY", 100000),
			CountLines:       getEnvAsBool("SYNC_COUNT_LINES", true),
		},
		Source: SourceConfig{
			Dir:       getEnv("SOURCE_DIR", "data"),
			BaseURL:   getEnv("SOURCE_BASE_URL", "https://download.geonames.org/export/dump/"),
			Download:  getEnvAsBool("SOURCE_DOWNLOAD", false),
			KeepFiles: getEnvAsBool("SOURCE_KEEP_FILES", false),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			Job:            getEnv("METRICS_JOB", "geonames-sync"),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.Sync.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFile overlays the YAML document at path onto c. Keys missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("parsing config %q: %w", path, err)
	}
	c.Sync.Countries = upper(c.Sync.Countries)
	return nil
}

// Validate checks the sync settings for values the engine cannot work with.
func (s SyncConfig) Validate() error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", s.BatchSize)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	for _, kind := range s.Kinds {
		if !contains(AllKinds, kind) {
			return fmt.Errorf("unknown kind %q", kind)
		}
	}
	return nil
}

// KindEnabled reports whether the given entity kind takes part in a run.
func (s SyncConfig) KindEnabled(kind string) bool {
	return contains(s.Kinds, kind)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func getEnvAsSliceDefault(key string, defaultValue []string) []string {
	if values := getEnvAsSlice(key); len(values) > 0 {
		return values
	}
	return append([]string(nil), defaultValue...)
}

func upper(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToUpper(v)
	}
	return values
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
