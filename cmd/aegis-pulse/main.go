package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/pflag"

	"github.com/ghalamif/AegisPulse"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "collect":
		err = collectCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "send":
		err = sendCommand(os.Args[2:])
	case "decode":
		err = decodeCommand(os.Args[2:], os.Stdout)
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
		log.Fatalf("aegis-pulse %s: %v", cmd, err)
	}
}

func collectCommand(args []string) error {
	fs := pflag.NewFlagSet("collect", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "Path to configuration file")
	listen := fs.StringP("listen", "l", "", "Override collector.addr")
	spoolDir := fs.String("spool-dir", "", "Park refused batches in this directory")
	noLimit := fs.Bool("no-rate-limit", false, "Disable per-IP rate limiting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := aegispulse.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flow.StreamIN(aegispulse.StreamInListen(*listen, ""))
	if *noLimit {
		flow.StreamIN(aegispulse.StreamInRateLimit(-1, flow.Config().Collector.RateLimit.IPLimit))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx, aegispulse.StreamOutSpool(*spoolDir, 0))
}

func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := aegispulse.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	for _, name := range cfg.Monitor.UnknownSilent() {
		fmt.Printf("warning: monitor.silent.%s matches no capture source and is ignored\n", name)
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func sendCommand(args []string) error {
	fs := pflag.NewFlagSet("send", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "Path to configuration file")
	typ := fs.StringP("type", "t", "custom", "Event type")
	message := fs.StringP("message", "m", "", "Event message")
	wait := fs.Duration("wait", 10*time.Second, "How long to wait for delivery")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := aegispulse.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Monitor.DSN == "" {
		return fmt.Errorf("monitor.dsn is required to send events")
	}

	m := aegispulse.NewMonitor()
	m.Init(cfg.Monitor)
	ev := aegispulse.Event{
		"type":      *typ,
		"timestamp": aegispulse.Timestamp(time.Now()),
	}
	if *message != "" {
		ev["message"] = *message
	}
	m.Send(ev)

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		return err
	}
	fmt.Printf("handed %s event to the transport for %s\n", *typ, cfg.Monitor.DSN)
	return nil
}

// decodeCommand prints the frames of a record-screen payload. The input is either the
// whole event JSON or just its events field.
func decodeCommand(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("decode", pflag.ExitOnError)
	path := fs.StringP("payload", "p", "-", "File holding the payload, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		raw []byte
		err error
	)
	if *path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*path)
	}
	if err != nil {
		return err
	}

	frames, err := aegispulse.DecodeRecording(recordingPayload(raw))
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(frames)
}

func recordingPayload(raw []byte) string {
	var ev struct {
		Events string `json:"events"`
	}
	if err := json.Unmarshal(raw, &ev); err == nil && ev.Events != "" {
		return ev.Events
	}
	return strings.TrimSpace(string(raw))
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
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
			snap, err := fetchMetrics(*url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
				continue
			}
			fmt.Printf("[%s] ingested=%.0f rejected=%.0f dropped=%.0f queue=%.0f\n",
				time.Now().Format(time.RFC3339),
				snap["pulse_collector_records_ingested_total"],
				snap["pulse_collector_rejected_total"],
				snap["pulse_collector_queue_dropped_total"],
				snap["pulse_collector_queue_length"],
			)
		}
	}
}

func fetchMetrics(url string) (map[string]float64, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return parseMetrics(resp.Body, []string{
		"pulse_collector_records_ingested_total",
		"pulse_collector_rejected_total",
		"pulse_collector_queue_dropped_total",
		"pulse_collector_queue_length",
	})
}

func parseMetrics(r io.Reader, names []string) (map[string]float64, error) {
	targets := make(map[string]float64, len(names))
	for _, n := range names {
		targets[n] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	return targets, scanner.Err()
}

func printUsage() {
	fmt.Printf(`AegisPulse CLI

Usage:
  aegis-pulse <command> [flags]

Commands:
  collect    Run the reference collector using the provided config
  validate   Load and validate a config file without starting anything
  send       Send one event through the tiered transport and wait for delivery
  decode     Decode a record-screen payload into its frames
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  aegis-pulse collect --config ./data/config.yaml
  aegis-pulse collect -c ./data/config.yaml --listen :8081 --spool-dir /var/lib/aegis-pulse
  aegis-pulse validate -c ./data/config.yaml
  aegis-pulse send -c ./data/config.yaml -t custom -m "hello"
  aegis-pulse decode -p recording.json
  aegis-pulse stats --url http://localhost:9100/metrics --interval 1s
`)
}
