package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"incidentsim/config"
	"incidentsim/internal/alerts"
	"incidentsim/internal/catalog"
	"incidentsim/internal/geo"
	"incidentsim/internal/geocode/nominatim"
	"incidentsim/internal/geocode/static"
	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/internal/output/alertclickhouse"
	"incidentsim/internal/output/alerthttp"
	"incidentsim/internal/output/alertjson"
	"incidentsim/internal/output/alertredis"
	"incidentsim/internal/output/alertsmtp"
	"incidentsim/internal/output/reportjson"
	"incidentsim/internal/output/reportpdf"
	"incidentsim/internal/report"
)

func buildCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Path, err)
	}
	logger.Infof("Catalog loaded from: %s", cfg.Path)
	return cat, nil
}

// buildGeoService returns nil for mode none; the resolver then falls back for
// every country.
func buildGeoService(cfg config.GeoConfig) (geo.Service, error) {
	switch strings.ToLower(cfg.Mode) {
	case "static":
		return static.NewService(nil), nil
	case "nominatim":
		return nominatim.NewClient(nominatim.Config{
			URL:           cfg.Nominatim.URL,
			UserAgent:     cfg.Nominatim.UserAgent,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.Nominatim.RatePerSecond,
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown geo mode: %s", cfg.Mode)
	}
}

// buildChannel returns nil for mode none.
func buildChannel(cfg config.AlertsConfig) (alerts.Channel, error) {
	switch strings.ToLower(cfg.Mode) {
	case "file":
		return alertjson.NewWriter(cfg.File.Path)
	case "http":
		timeout := cfg.HTTP.Timeout
		if timeout <= 0 {
			timeout = cfg.Timeout
		}
		return alerthttp.NewWriter(alerthttp.Config{
			URL:     cfg.HTTP.URL,
			Timeout: timeout,
			Headers: cfg.HTTP.Headers,
			Secret:  cfg.HTTP.Secret,
			Retries: cfg.HTTP.Retries,
		})
	case "smtp":
		return alertsmtp.NewSender(alertsmtp.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Security:   cfg.SMTP.Security,
			From:       cfg.SMTP.From,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			Recipients: cfg.SMTP.Recipients,
			Timeout:    cfg.Timeout,
		})
	case "redis":
		return alertredis.NewPublisher(alertredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			MaxLen:   cfg.Redis.MaxLen,
		})
	case "clickhouse":
		return alertclickhouse.NewWriter(alertclickhouse.Config{
			URL:       cfg.ClickHouse.URL,
			Database:  cfg.ClickHouse.Database,
			Table:     cfg.ClickHouse.Table,
			Username:  cfg.ClickHouse.Username,
			Password:  cfg.ClickHouse.Password,
			Timeout:   cfg.Timeout,
			Headers:   cfg.ClickHouse.Headers,
			BatchSize: cfg.ClickHouse.BatchSize,
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown alerts mode: %s", cfg.Mode)
	}
}

// reportFormat picks the renderer: an explicit format wins, then a .json
// extension, else PDF.
func reportFormat(path, format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return "json"
	case "pdf":
		return "pdf"
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "pdf"
}

func buildRenderer(path, format string) (report.Renderer, error) {
	if reportFormat(path, format) == "json" {
		return reportjson.NewWriter(path)
	}
	return reportpdf.NewWriter(path)
}

func startMetricsServer(listen string) *http.Server {
	if strings.TrimSpace(listen) == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	logger.Infof("Metrics listening on %s/metrics", listen)
	return srv
}
