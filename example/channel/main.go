package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisPulse"
)

func main() {
	flow, err := aegispulse.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := aegispulse.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	if err := flow.Run(ctx, aegispulse.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []aegispulse.Record) {
	for batch := range batches {
		types := make(map[string]int)
		for _, r := range batch {
			types[r.EventType]++
		}
		fmt.Printf("[%s] %d records at %s by type %v\n", name, len(batch), time.Now().Format(time.RFC3339), types)
	}
}
