// Demonstrates attaching a custom live reporter to a run: every accepted
// sample is handed to the reporter right after it is persisted.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	irocvrecorder "github.com/vaibhavipatil169-max/ir-ocv-recorder"
)

type printReporter struct{}

func (printReporter) Report(s irocvrecorder.Sample) {
	fmt.Printf("%s  IR=%.4f ohm  OCV=%.4f V\n",
		s.Timestamp.Format(time.RFC3339Nano),
		s.InternalResistance,
		s.OpenCircuitVoltage,
	)
}

func (printReporter) Close() error { return nil }

func main() {
	rt, err := irocvrecorder.Conf("../config.yaml",
		irocvrecorder.WithReporter(printReporter{}),
	)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("recorder exited: %v", err)
	}
}
