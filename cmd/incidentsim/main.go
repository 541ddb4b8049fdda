package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"incidentsim/config"
	"incidentsim/internal/alerts"
	"incidentsim/internal/geo"
	"incidentsim/internal/incident"
	"incidentsim/internal/logger"
	"incidentsim/internal/output/alertjson"
	"incidentsim/internal/output/alertredis"
	"incidentsim/internal/pipeline"
	"incidentsim/internal/report"
	"incidentsim/internal/stats"
	"incidentsim/pkg/models"
)

const defaultConfigName = "incidentsim.yml"

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadConfig reads the config file when one exists, otherwise the
// environment alone, and fills defaults.
func loadConfig(configArg string) (*config.Config, string, error) {
	path := findConfigFile(configArg)

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, path, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func applyDefaults(cfg *config.Config) {
	s := &cfg.Simulator

	if s.Simulation.Count == 0 {
		s.Simulation.Count = 3
	}
	if s.Simulation.Workers == 0 {
		s.Simulation.Workers = 1
	}

	if s.Geo.Mode == "" {
		s.Geo.Mode = "static"
	}
	if s.Geo.Timeout <= 0 {
		s.Geo.Timeout = 5 * time.Second
	}
	if s.Geo.Nominatim.URL == "" {
		s.Geo.Nominatim.URL = "https://nominatim.openstreetmap.org"
	}
	if s.Geo.Nominatim.UserAgent == "" {
		s.Geo.Nominatim.UserAgent = "incidentsim/1.0"
	}
	if s.Geo.Nominatim.RatePerSecond <= 0 {
		s.Geo.Nominatim.RatePerSecond = 1
	}

	if s.Alerts.Mode == "" {
		s.Alerts.Mode = "file"
	}
	if s.Alerts.Timeout <= 0 {
		s.Alerts.Timeout = 10 * time.Second
	}
	if s.Alerts.File.Path == "" {
		s.Alerts.File.Path = "output/alerts.jsonl"
	}
	if s.Alerts.Redis.Addr == "" {
		s.Alerts.Redis.Addr = "127.0.0.1:6379"
	}
	if s.Alerts.Redis.Key == "" {
		s.Alerts.Redis.Key = "incidentsim:alerts"
	}
	if s.Alerts.ClickHouse.Database == "" {
		s.Alerts.ClickHouse.Database = "incidentsim"
	}
	if s.Alerts.ClickHouse.Table == "" {
		s.Alerts.ClickHouse.Table = "security_incidents"
	}

	if s.Report.Path == "" {
		s.Report.Path = "security_report.pdf"
	}

	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
}

func initLogging(cfg *config.Config) {
	l := cfg.Simulator.Logging
	if err := logger.Init(l.Enabled, l.Level, l.File, l.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
}

func runSimulate(args []string) int {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path (default incidentsim.yml)")
	count := fs.Int("count", 0, "Number of incidents to create (overrides config)")
	workers := fs.Int("workers", 0, "Concurrent incident workers (overrides config)")
	seed := fs.Uint64("seed", 0, "Deterministic random seed (overrides config)")
	reportPath := fs.String("report", "", "Report output path (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *configArg == "" && fs.NArg() > 0 {
		// Backward-compatible mode: first positional arg is the config path.
		*configArg = fs.Arg(0)
	}

	cfg, configPath, err := loadConfig(*configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	s := &cfg.Simulator
	if *count > 0 {
		s.Simulation.Count = *count
	}
	if *workers > 0 {
		s.Simulation.Workers = *workers
	}
	if *seed != 0 {
		s.Simulation.Seed = *seed
	}
	if *reportPath != "" {
		s.Report.Path = *reportPath
	}

	initLogging(cfg)
	defer logger.Close()

	logger.Infof("Incident simulator starting")
	if configPath != "" {
		logger.Infof("Config loaded from: %s", configPath)
	}

	metricsSrv := startMetricsServer(cfg.Simulator.Metrics.Listen)

	cat, err := buildCatalog(s.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	service, err := buildGeoService(s.Geo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create geocoder: %v\n", err)
		return 1
	}
	resolver := geo.NewResolver(service, geo.WithTimeout(s.Geo.Timeout))

	channel, err := buildChannel(s.Alerts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create alert channel: %v\n", err)
		return 1
	}

	renderer, err := buildRenderer(s.Report.Path, s.Report.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create report writer: %v\n", err)
		return 1
	}

	store := incident.NewStore()
	factoryOpts := []incident.Option{incident.WithResponsePlan(s.Simulation.ResponsePlan)}
	if s.Simulation.Seed != 0 {
		factoryOpts = append(factoryOpts, incident.WithSeed(s.Simulation.Seed))
	}
	factory := incident.NewFactory(cat, resolver, store, factoryOpts...)

	sessionID := uuid.NewString()
	exporter := report.NewExporter(stats.NewAggregator(cat), sessionID)
	sim := pipeline.NewSimulator(factory, store, alerts.NewDispatcher(s.Alerts.Timeout), channel, exporter, s.Simulation.Workers)
	logger.Infof("Session %s: geo=%s alerts=%s report=%s", sessionID, s.Geo.Mode, s.Alerts.Mode, renderer.Target())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exit := 0
	res, err := sim.Run(ctx, s.Simulation.Count)
	if errors.Is(err, context.Canceled) {
		logger.Warnf("Simulation interrupted after %d of %d incidents", len(res.Incidents), s.Simulation.Count)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		exit = 1
	}
	for _, inc := range res.Incidents {
		fmt.Printf("#%d %s [%s] %s/%s (%.2f, %.2f)\n",
			inc.ID, inc.AttackType, inc.Severity, inc.Region, inc.CountryCode, inc.Coordinates.Lat, inc.Coordinates.Lon)
	}
	if err := sim.Close(); err != nil {
		exit = 1
	}

	// The report covers whatever was created, even after an interrupt.
	if _, err := sim.Report(context.Background(), renderer); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exit = 1
	} else {
		fmt.Printf("report=%s incidents=%d alert_failures=%d geo_failures=%d\n",
			renderer.Target(), store.Size(), res.AlertFailures, res.GeoFailures)
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}

	logger.Infof("Incident simulator stopped")
	return exit
}

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path (default incidentsim.yml)")
	source := fs.String("source", "file", "Where recorded alerts are read from: file|redis")
	journal := fs.String("journal", "", "Alert journal to rebuild the history from (default alerts.file.path); a journal missing an id, e.g. after a failed alert write, is rejected")
	output := fs.String("output", "", "Report output path (default report.path)")
	format := fs.String("format", "", "Report format: pdf|json (default from extension)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, err := loadConfig(*configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	s := &cfg.Simulator
	if *journal == "" {
		*journal = s.Alerts.File.Path
	}
	if *output == "" {
		*output = s.Report.Path
	}
	if *format == "" {
		*format = s.Report.Format
	}

	initLogging(cfg)
	defer logger.Close()

	cat, err := buildCatalog(s.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	incidents, err := loadRecorded(*source, *journal, s.Alerts.Redis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load recorded alerts: %v\n", err)
		return 1
	}
	store, err := incident.Restore(cat, incidents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to rebuild history from %s: %v\n", *journal, err)
		return 1
	}

	renderer, err := buildRenderer(*output, *format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create report writer: %v\n", err)
		return 1
	}

	exporter := report.NewExporter(stats.NewAggregator(cat), uuid.NewString())
	if _, err := exporter.Export(context.Background(), store, renderer); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	fmt.Printf("report=%s incidents=%d source=%s\n", renderer.Target(), store.Size(), *source)
	return 0
}

func loadRecorded(source, journal string, rc config.RedisOutputConfig) ([]models.Incident, error) {
	switch source {
	case "file":
		return alertjson.LoadIncidents(journal)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return alertredis.LoadIncidents(ctx, alertredis.Config{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Key:      rc.Key,
		})
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func runCatalog(args []string) int {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path (default incidentsim.yml)")
	path := fs.String("path", "", "Catalog file (default catalog.path, else built-in)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, err := loadConfig(*configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *path != "" {
		cfg.Simulator.Catalog.Path = *path
	}

	cat, err := buildCatalog(cfg.Simulator.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	attacks, regions := cat.Entries()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTACK TYPE\tSEVERITY\tSCORE")
	for _, a := range attacks {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", a.Name, a.Severity, a.Severity.Score())
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "REGION\tCOUNTRIES\t")
	for _, r := range regions {
		fmt.Fprintf(tw, "%s\t%v\t\n", r.Name, r.Countries)
	}
	tw.Flush()
	return 0
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "simulate":
			os.Exit(runSimulate(os.Args[2:]))
		case "report":
			os.Exit(runReport(os.Args[2:]))
		case "catalog":
			os.Exit(runCatalog(os.Args[2:]))
		default:
			os.Exit(runSimulate(os.Args[1:]))
		}
	}

	os.Exit(runSimulate(nil))
}
