package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	AppName     string   `yaml:"app_name"`
	ServerPort  string   `yaml:"server_port"`
	Debug       bool     `yaml:"debug"`
	LogLevel    string   `yaml:"log_level"`
	CORSOrigins []string `yaml:"cors_origins"`

	DatabaseType   string `yaml:"database_type"`
	DatabasePath   string `yaml:"database_path"`
	DatabaseURL    string `yaml:"database_url"`
	MigrationsPath string `yaml:"migrations_path"`
	SeedFile       string `yaml:"seed_file"`

	JWTSecret      string        `yaml:"jwt_secret"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	LoginRateLimit int           `yaml:"login_rate_limit"`

	UploadDir     string `yaml:"upload_dir"`
	UploadMaxSize int64  `yaml:"upload_max_size"`

	AzureSpeechKey     string        `yaml:"azure_speech_key"`
	AzureRegion        string        `yaml:"azure_region"`
	AzureTenantID      string        `yaml:"azure_tenant_id"`
	AzureClientID      string        `yaml:"azure_client_id"`
	AzureClientSecret  string        `yaml:"azure_client_secret"`
	AssessmentLanguage string        `yaml:"assessment_language"`
	AssessmentTimeout  time.Duration `yaml:"assessment_timeout"`

	DictionaryAPIURL   string        `yaml:"dictionary_api_url"`
	DictionaryCacheTTL time.Duration `yaml:"dictionary_cache_ttl"`
	DictionaryCacheMax int           `yaml:"dictionary_cache_max"`
	RedisURL           string        `yaml:"redis_url"`

	AWSRegion    string `yaml:"aws_region"`
	SESFromEmail string `yaml:"ses_from_email"`
	SESFromName  string `yaml:"ses_from_name"`
	AppBaseURL   string `yaml:"app_base_url"`
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE and
// then from environment variables, which take precedence. Defaults fill
// anything left unset.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		AppName:     "Pronunciation Practice Portal",
		ServerPort:  "8080",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},

		DatabaseType:   "sqlite",
		DatabasePath:   "./speakwell.db",
		MigrationsPath: "./migrations",
		SeedFile:       "./seeds/word_databases.yaml",

		JWTSecret:      "change-me-in-production",
		TokenDuration:  7 * 24 * time.Hour,
		LoginRateLimit: 10,

		UploadDir:     "./uploads",
		UploadMaxSize: 10 * 1024 * 1024, // 10MB

		AssessmentLanguage: "en-US",
		AssessmentTimeout:  30 * time.Second,

		DictionaryAPIURL:   "https://api.dictionaryapi.dev/api/v2/entries/en",
		DictionaryCacheTTL: time.Hour,
		DictionaryCacheMax: 5000,

		AWSRegion:   "us-east-1",
		SESFromName: "Pronunciation Practice",
		AppBaseURL:  "http://localhost:8080",
	}
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config: decode %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}

	c.DatabaseType = getEnv("DB_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
	c.SeedFile = getEnv("SEED_FILE", c.SeedFile)

	c.JWTSecret = getEnv("SECRET_KEY", c.JWTSecret)
	c.TokenDuration = getEnvDuration("ACCESS_TOKEN_EXPIRE", c.TokenDuration)
	c.LoginRateLimit = getEnvInt("LOGIN_RATE_LIMIT", c.LoginRateLimit)

	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.UploadMaxSize = int64(getEnvInt("MAX_UPLOAD_SIZE", int(c.UploadMaxSize)))

	c.AzureSpeechKey = getEnv("AZURE_SPEECH_KEY", c.AzureSpeechKey)
	c.AzureRegion = getEnv("AZURE_REGION", c.AzureRegion)
	c.AzureTenantID = getEnv("AZURE_TENANT_ID", c.AzureTenantID)
	c.AzureClientID = getEnv("AZURE_CLIENT_ID", c.AzureClientID)
	c.AzureClientSecret = getEnv("AZURE_CLIENT_SECRET", c.AzureClientSecret)
	c.AssessmentLanguage = getEnv("ASSESSMENT_LANGUAGE", c.AssessmentLanguage)
	c.AssessmentTimeout = getEnvDuration("ASSESSMENT_TIMEOUT", c.AssessmentTimeout)

	c.DictionaryAPIURL = getEnv("DICTIONARY_API_URL", c.DictionaryAPIURL)
	c.DictionaryCacheTTL = getEnvDuration("DICTIONARY_CACHE_TTL", c.DictionaryCacheTTL)
	c.DictionaryCacheMax = getEnvInt("DICTIONARY_CACHE_MAX", c.DictionaryCacheMax)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)
}

// AssessmentConfigured reports whether real assessment credentials are set.
func (c *Config) AssessmentConfigured() bool {
	if c.AzureRegion == "" {
		return false
	}
	return c.AzureSpeechKey != "" || (c.AzureTenantID != "" && c.AzureClientID != "" && c.AzureClientSecret != "")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go durations ("90m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
