// Package main implements the spark command line: it loads a CSV or
// newline-delimited JSON file, infers a schema, registers the result as a
// catalog table, runs a query against it, and prints the rows. With -save
// the dataset is also persisted to a JetStream object store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/falaki/spark/config"
	"github.com/falaki/spark/infer"
	"github.com/falaki/spark/session"
	"github.com/falaki/spark/storage"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "spark"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{session.WithLogger(logger)}
	if cliCfg.StorePath != "" {
		opts = append(opts, session.WithObjectStore())
	}
	sess, err := session.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	ds, err := loadDataset(sess, cliCfg)
	if err != nil {
		return err
	}
	if err := sess.RegisterTable(cliCfg.TableName, ds); err != nil {
		return err
	}

	query := cliCfg.Query
	if query == "" {
		query = fmt.Sprintf("SELECT * FROM %s", cliCfg.TableName)
	}
	result, err := sess.SQL(query)
	if err != nil {
		return err
	}
	if err := printDataset(result); err != nil {
		return err
	}

	if cliCfg.StorePath != "" {
		if err := persistDataset(ctx, sess, cliCfg.StorePath, ds); err != nil {
			return err
		}
		logger.Info("dataset persisted", "location", cliCfg.StorePath)
	}
	return nil
}

func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = cliCfg.LogLevel
	cfg.Logging.Format = cliCfg.LogFormat
	return cfg, nil
}

func loadDataset(sess *session.Session, cliCfg *CLIConfig) (*session.Dataset, error) {
	file, err := os.Open(cliCfg.InputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	opts := infer.Options{SampleRatio: cliCfg.SampleRatio}

	switch cliCfg.Format {
	case "json":
		var records [][]byte
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			records = append(records, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return sess.CreateDatasetFromJSON(records, opts)
	default:
		opts.Header = cliCfg.Header
		if cliCfg.Delimiter != "" {
			opts.Delimiter = []rune(cliCfg.Delimiter)[0]
		}
		return sess.CreateDatasetFromDelimited(file, opts)
	}
}

func printDataset(ds *session.Dataset) error {
	rows, err := ds.Collect()
	if err != nil {
		return err
	}

	fmt.Println(ds.Schema().String())
	for _, r := range rows {
		for i, v := range r {
			if i > 0 {
				fmt.Print("\t")
			}
			if v == nil {
				fmt.Print("NULL")
			} else {
				fmt.Print(v)
			}
		}
		fmt.Println()
	}
	fmt.Printf("%d rows\n", len(rows))
	return nil
}

func persistDataset(ctx context.Context, sess *session.Session, location string, ds *session.Dataset) error {
	if _, err := sess.CreateEmptyStoreWithSchema(ctx, ds.Schema(), location, true, storage.Options{}); err != nil {
		return err
	}
	return sess.SaveDataset(ctx, location, ds)
}
