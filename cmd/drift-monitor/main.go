package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	driftdetection "github.com/espirado/model-drift-detection"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("drift-monitor %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to monitor configuration file")
	baselinePath := fs.String("baseline", "", "NDJSON file of baseline samples (needed for the manual reference policy)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := driftdetection.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	monitor, err := flow.Notify(driftdetection.NotifyCallback("stdout", printAlerts))
	if err != nil {
		return fmt.Errorf("build monitor: %w", err)
	}

	if *baselinePath != "" {
		samples, err := readBaseline(*baselinePath)
		if err != nil {
			return fmt.Errorf("read baseline: %w", err)
		}
		if err := monitor.SetBaseline(samples); err != nil {
			return fmt.Errorf("set baseline: %w", err)
		}
		log.Printf("baseline: %d samples from %s", len(samples), *baselinePath)
	}

	if err := monitor.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Samples arrive one JSON object per stdin line; EOF ends the run.
	done := make(chan struct{})
	go func() {
		defer close(done)
		feedSamples(ctx, monitor, os.Stdin)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return monitor.Shutdown(shutdownCtx)
}

type sampleRecord struct {
	Timestamp   time.Time          `json:"ts"`
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
	SourceID    string             `json:"source_id"`
}

func (r sampleRecord) sample() driftdetection.Sample {
	return driftdetection.Sample{
		Timestamp:   r.Timestamp,
		Numeric:     r.Numeric,
		Categorical: r.Categorical,
		SourceID:    r.SourceID,
	}
}

func readBaseline(path string) ([]driftdetection.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []driftdetection.Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec sampleRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, err
		}
		samples = append(samples, rec.sample())
	}
	return samples, scanner.Err()
}

func feedSamples(ctx context.Context, monitor *driftdetection.Monitor, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec sampleRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			fmt.Fprintf(os.Stderr, "skip malformed sample: %v\n", err)
			continue
		}
		if err := monitor.Observe(rec.sample()); err != nil {
			fmt.Fprintf(os.Stderr, "skip rejected sample: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "stdin read error: %v\n", err)
	}
}

func printAlerts(batch []driftdetection.Alert) error {
	for _, a := range batch {
		fmt.Printf("ALERT %s severity=%s feature=%s kind=%s value=%g threshold=%g window=%d\n",
			a.Timestamp.Format(time.RFC3339), a.Severity, a.Feature, a.Kind, a.Value, a.Threshold, a.WindowSeq)
	}
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := driftdetection.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"drift_samples_ingested_total": 0,
		"drift_windows_sealed_total":   0,
		"drift_alerts_emitted_total":   0,
		"drift_queue_length":           0,
		"drift_journal_size_bytes":     0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] samples=%.0f windows=%.0f alerts=%.0f queue=%.0f journal_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["drift_samples_ingested_total"],
		targets["drift_windows_sealed_total"],
		targets["drift_alerts_emitted_total"],
		targets["drift_queue_length"],
		targets["drift_journal_size_bytes"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`drift-monitor CLI

Usage:
  drift-monitor <command> [flags]

Commands:
  run        Start the monitor and read NDJSON samples from stdin
  validate   Load and validate a config file without starting the monitor
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  tail -F samples.ndjson | drift-monitor run -config ./data/config.yaml -baseline ./data/baseline.ndjson
  drift-monitor validate -config ./data/config.yaml
  drift-monitor stats -url http://localhost:9100/metrics -interval 1s
`)
}
