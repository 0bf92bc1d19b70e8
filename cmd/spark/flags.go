package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	InputPath   string
	Format      string
	TableName   string
	Query       string
	Delimiter   string
	Header      bool
	SampleRatio float64
	StorePath   string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SPARK_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: SPARK_CONFIG)")

	flag.StringVar(&cfg.InputPath, "input", "",
		"Path to the input data file")

	flag.StringVar(&cfg.Format, "format", "csv",
		"Input format: csv or json (one JSON object per line)")

	flag.StringVar(&cfg.TableName, "table", "data",
		"Catalog name to register the dataset under")

	flag.StringVar(&cfg.Query, "query", "",
		"Query to run against the catalog, defaults to SELECT * FROM <table>")

	flag.StringVar(&cfg.Delimiter, "delimiter", "",
		"Field delimiter for csv input, defaults from configuration")

	flag.BoolVar(&cfg.Header, "header", true,
		"Treat the first csv record as field names")

	flag.Float64Var(&cfg.SampleRatio, "sample-ratio",
		getEnvFloat("SPARK_SAMPLE_RATIO", 0),
		"Fraction of records sampled for inference, 0 means configuration default (env: SPARK_SAMPLE_RATIO)")

	flag.StringVar(&cfg.StorePath, "save", "",
		"Object store location to persist the dataset to, empty to skip")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SPARK_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SPARK_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SPARK_LOG_FORMAT", "text"),
		"Log format: json, text (env: SPARK_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if !cfg.Validate {
		if cfg.InputPath == "" {
			return fmt.Errorf("an input file is required, see -input")
		}
		if _, err := os.Stat(cfg.InputPath); err != nil {
			return fmt.Errorf("input file not found: %s", cfg.InputPath)
		}
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if !contains([]string{"csv", "json"}, cfg.Format) {
		return fmt.Errorf("invalid format: %s", cfg.Format)
	}
	if !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1.0 {
		return fmt.Errorf("invalid sample ratio: %v", cfg.SampleRatio)
	}
	if len([]rune(cfg.Delimiter)) > 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)
	}
	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Schema Inference and Row Materialization

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Infer a schema from a CSV file and print every row
  %s --input=cities.csv --table=cities

  # Load newline-delimited JSON with a 10%% inference sample
  %s --input=events.json --format=json --sample-ratio=0.1

  # Persist the dataset to a JetStream object store
  %s --input=cities.csv --save=cities-store

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
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
