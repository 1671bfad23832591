package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"netgof/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Test   TestConfig   `validate:"required"`
	Server ServerConfig `validate:"required"`
}

// TestConfig holds the defaults of a goodness-of-fit run
type TestConfig struct {
	NSim       int `validate:"gte=1"`
	Seed       int64
	NProcs     int     `validate:"gte=0"`
	Statistic  string  `validate:"oneof=lrt qlog pearson"`
	Correction string  `validate:"oneof=simulation none"`
	Rho        float64 `validate:"gte=0,lte=1"`
	TmpDir     string
	KeepFiles  bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr    string `validate:"required"`
	GinMode string `validate:"oneof=debug release test"`
}

var validate = validator.New()

// Load reads an optional .env file, then configuration from environment
// variables, and validates it
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read .env file")
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only
func FromEnv() (*Config, error) {
	config := &Config{
		Test:   *loadTestConfig(),
		Server: *loadServerConfig(),
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadTestConfig() *TestConfig {
	return &TestConfig{
		NSim:       getEnvIntOrDefault("NETGOF_NSIM", 1000),
		Seed:       int64(getEnvIntOrDefault("NETGOF_SEED", 1234)),
		NProcs:     getEnvIntOrDefault("NETGOF_NPROCS", 0),
		Statistic:  strings.ToLower(getEnvOrDefault("NETGOF_STATISTIC", "lrt")),
		Correction: strings.ToLower(getEnvOrDefault("NETGOF_CORRECTION", "simulation")),
		Rho:        getEnvFloatOrDefault("NETGOF_RHO", 0),
		TmpDir:     getEnvOrDefault("NETGOF_TMPDIR", ""),
		KeepFiles:  getEnvBoolOrDefault("NETGOF_KEEP_FILES", false),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:    getEnvOrDefault("NETGOF_ADDR", ":8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.Newf(errors.CodeConfigInvalid, "%s fails the %s rule: got %v", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
