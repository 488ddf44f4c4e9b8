package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/ghalamif/AegisPulse"
)

func main() {
	cfg, err := aegispulse.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := aegispulse.NewMonitor(aegispulse.WithInitialHash("#/home"))
	monitor.Init(cfg.Monitor)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := monitor.Shutdown(shutdownCtx); err != nil {
			log.Printf("monitor shutdown: %v", err)
		}
	}()

	client := &http.Client{Transport: monitor.Fetch().WrapRoundTripper(http.DefaultTransport)}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitor.AddCustomEvent(aegispulse.BreadcrumbType("custom"), "health probe", nil, aegispulse.Level("info"))
			resp, err := client.Get("https://example.com/health")
			if err != nil {
				monitor.Errors().CaptureError(pkgerrors.Wrap(err, "health probe"))
				continue
			}
			resp.Body.Close()
		}
	}
}
