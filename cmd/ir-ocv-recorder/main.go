package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	irocvrecorder "github.com/vaibhavipatil169-max/ir-ocv-recorder"
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
	case "summary":
		err = summaryCommand(os.Args[2:])
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
		log.Fatalf("ir-ocv-recorder %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to recorder configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := irocvrecorder.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := irocvrecorder.NewRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := irocvrecorder.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good ✅\n", *cfgPath)
	return nil
}

func summaryCommand(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	logPath := fs.String("log", "./data/ir_ocv.csv", "Path to the CSV log to summarize")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sum, err := irocvrecorder.SummaryFile(*logPath)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d samples\n", *logPath, sum.Rows)
	if sum.Rows == 0 {
		return nil
	}
	fmt.Printf("  IR  (ohm): avg=%.4f min=%.4f max=%.4f range=%.4f\n",
		sum.IR.Avg, sum.IR.Min, sum.IR.Max, sum.IR.Range())
	fmt.Printf("  OCV (V):   avg=%.4f min=%.4f max=%.4f range=%.4f\n",
		sum.OCV.Avg, sum.OCV.Min, sum.OCV.Max, sum.OCV.Range())
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
		"irocv_samples_accepted_total": 0,
		"irocv_samples_rejected_total": 0,
		"irocv_last_ir_ohm":            0,
		"irocv_last_ocv_v":             0,
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

	fmt.Printf("[%s] accepted=%.0f rejected=%.0f ir=%.4f ocv=%.4f\n",
		time.Now().Format(time.RFC3339),
		targets["irocv_samples_accepted_total"],
		targets["irocv_samples_rejected_total"],
		targets["irocv_last_ir_ohm"],
		targets["irocv_last_ocv_v"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`IR/OCV Recorder CLI

Usage:
  ir-ocv-recorder <command> [flags]

Commands:
  run        Start a logging run using the provided config
  validate   Load and validate a config file without starting a run
  summary    Print count/avg/min/max/range statistics for an existing log
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  ir-ocv-recorder run -config ./data/config.yaml
  ir-ocv-recorder validate -config ./data/config.yaml
  ir-ocv-recorder summary -log ./data/ir_ocv.csv
  ir-ocv-recorder stats -url http://localhost:9100/metrics -interval 1s
`)
}
