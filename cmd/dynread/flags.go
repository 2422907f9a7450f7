package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	SchemaPath  string
	Entity      string
	Fields      string
	Omit        string
	Strict      bool
	RefSuffix   string
	LogLevel    string
	LogFormat   string
	Debug       bool
	MetricsPort int
	ShowStats   bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.SchemaPath, "schema",
		getEnv("DYNREAD_SCHEMA", "schema.json"),
		"Path to schema definition file (env: DYNREAD_SCHEMA)")

	flag.StringVar(&cfg.SchemaPath, "s",
		getEnv("DYNREAD_SCHEMA", "schema.json"),
		"Path to schema definition file (env: DYNREAD_SCHEMA)")

	flag.StringVar(&cfg.Entity, "entity", "", "Entity to compute a plan for")
	flag.StringVar(&cfg.Entity, "e", "", "Entity to compute a plan for")

	flag.StringVar(&cfg.Fields, "fields", "",
		"Comma-separated include paths, double-underscore nested (e.g. type__name)")
	flag.StringVar(&cfg.Omit, "omit", "",
		"Comma-separated omit paths, double-underscore nested")

	flag.BoolVar(&cfg.Strict, "strict",
		getEnvBool("DYNREAD_STRICT", false),
		"Fail on unknown selection fields instead of ignoring them (env: DYNREAD_STRICT)")

	flag.StringVar(&cfg.RefSuffix, "ref-suffix",
		getEnv("DYNREAD_REF_SUFFIX", "_id"),
		"Identifier alias suffix, empty to disable (env: DYNREAD_REF_SUFFIX)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("DYNREAD_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: DYNREAD_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("DYNREAD_LOG_FORMAT", "text"),
		"Log format: json, text (env: DYNREAD_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("DYNREAD_DEBUG", false),
		"Enable debug mode (env: DYNREAD_DEBUG)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("DYNREAD_METRICS_PORT", 0),
		"Serve Prometheus metrics on this port after planning, 0 to disable (env: DYNREAD_METRICS_PORT)")

	flag.BoolVar(&cfg.ShowStats, "stats", false, "Print plan cache statistics to stderr")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate the schema definition and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate schema file exists
	if _, err := os.Stat(cfg.SchemaPath); err != nil {
		return fmt.Errorf("schema file not found: %s", cfg.SchemaPath)
	}

	if !cfg.Validate && cfg.Entity == "" {
		return fmt.Errorf("an entity is required, pass --entity")
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	// Validate metrics port
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Dynamic Read Plan Inspector

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Full plan for an entity
  %s --schema=schema.json --entity=Event

  # Sparse selection with nested paths
  %s --entity=Event --fields=id,type__name --omit=causes__createdBy

  # Fail on typos in selections
  %s --entity=Event --fields=id,tpye --strict

  # Validate a schema definition only
  %s --schema=schema.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
