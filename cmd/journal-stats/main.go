package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"incidentsim/internal/catalog"
	"incidentsim/internal/incident"
	"incidentsim/internal/output/alertjson"
	"incidentsim/internal/stats"
	"incidentsim/pkg/models"
)

type output struct {
	Journal string                    `json:"journal"`
	Summary *models.SummaryStatistics `json:"summary"`
	// BySeverity counts incidents per severity level.
	BySeverity map[string]int `json:"by_severity"`
}

func main() {
	input := flag.String("input", "output/alerts.jsonl", "Alert journal JSONL input path")
	catalogPath := flag.String("catalog", "", "Catalog file used for tie-breaking (default built-in)")
	pretty := flag.Bool("pretty", true, "Indent JSON output")
	flag.Parse()

	cat := catalog.Default()
	if strings.TrimSpace(*catalogPath) != "" {
		c, err := catalog.Load(*catalogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load catalog: %v\n", err)
			os.Exit(1)
		}
		cat = c
	}

	incidents, err := alertjson.LoadIncidents(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load alert journal: %v\n", err)
		os.Exit(1)
	}
	store, err := incident.Restore(cat, incidents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to rebuild history: %v\n", err)
		os.Exit(1)
	}

	out := output{Journal: *input, BySeverity: map[string]int{}}
	out.Summary, _ = stats.NewAggregator(cat).Summarize(store)
	for _, inc := range store.All() {
		out.BySeverity[inc.Severity.String()]++
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write summary: %v\n", err)
		os.Exit(1)
	}
}
