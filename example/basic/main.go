package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	irocvrecorder "github.com/vaibhavipatil169-max/ir-ocv-recorder"
)

func main() {
	rt, err := irocvrecorder.Conf("../config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("recorder exited: %v", err)
	}
}
