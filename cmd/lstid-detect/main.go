package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hamsci/lstid-detect/internal/app"
	"github.com/hamsci/lstid-detect/internal/log"
	"github.com/hamsci/lstid-detect/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	dateFlag := flag.String("date", "", "Date to analyse, YYYY-MM-DD (required)")
	out := flag.String("out", "", "Write the full report here: .json, .msgpack, or - for JSON on stdout")
	indent := flag.Bool("indent", false, "Pretty-print JSON output")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lstid-detect %s\n", version)
		os.Exit(0)
	}

	if *dateFlag == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -date YYYY-MM-DD [-config config.yaml] [-out report.json]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	date, err := time.Parse("2006-01-02", *dateFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -date %q: %v\n", *dateFlag, err)
		os.Exit(1)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	application := app.New(cfgData, log.GetSugaredLogger())
	report, err := application.Run(context.Background(), app.Options{Date: date, Output: *out, Indent: *indent})
	if err != nil {
		log.Errorf("Application error: %v", err)
		log.Sync()
		os.Exit(1)
	}

	switch {
	case report.NoData != nil:
		log.Warnf("%s", report.NoData.Diagnostic)
	case report.Result.IsLSTID():
		log.Infof("%s: LSTID detected", *dateFlag)
	default:
		log.Infof("%s: no LSTID detected", *dateFlag)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
