package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chemviz-dashboard/internal/bootstrap"
	"chemviz-dashboard/internal/config"
	"chemviz-dashboard/internal/server"
	"chemviz-dashboard/internal/tracer"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	go container.WebSocketHub.Run(ctx)
	if err := container.StateConsumer.Consume(ctx); err != nil {
		log.Fatalf("Failed to subscribe to view state: %v", err)
	}

	// the API answers 503 until this finishes
	go func() {
		if err := container.Sessions.Restore(ctx); err != nil {
			log.Printf("[WARN] Session restore failed: %v", err)
			return
		}
		if container.Sessions.Current() != nil {
			_ = container.Dashboard.LoadLatest(ctx)
		}
	}()

	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
