package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qrscanner/internal/app"
	"qrscanner/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, config.Load())
	if err != nil {
		log.Fatalf("Failed to start scanner: %v", err)
	}

	err = application.Run()
	application.Close()
	if err != nil {
		log.Fatalf("Scanner stopped with error: %v", err)
	}
}
