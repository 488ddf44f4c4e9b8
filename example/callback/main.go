package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisPulse/pkg/aegispulse"
)

func main() {
	flow, err := aegispulse.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []aegispulse.Record) error {
		for _, r := range batch {
			fmt.Printf("%s app=%s type=%s message=%q info=%s\n",
				r.ReceivedAt.Format(time.RFC3339Nano),
				r.AppID,
				r.EventType,
				r.Message,
				r.Info,
			)
		}
		return nil
	}

	if err := flow.Run(ctx, aegispulse.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
