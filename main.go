package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slidestudio/api"
	"slidestudio/app"
	"slidestudio/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, settings)
	defer a.Close()

	if len(settings.KafkaBrokers) > 0 {
		consumer, err := a.Runner.StartKafkaConsumer(ctx, settings.KafkaBrokers, settings.KafkaTopic, settings.KafkaGroupID)
		if err != nil {
			log.Printf("Warning: kafka consumer not started: %v", err)
		} else {
			defer consumer.Close()
		}
	}

	addr := ":" + settings.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(a.Runner, a.Planner),
	}

	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  GET  /api/voices")
	log.Println("  POST /api/plans")
	log.Println("  POST /api/renders")
	log.Println("  GET  /api/renders/:id")
	log.Println("  POST /api/renders/:id/retry")
	log.Println("  GET  /api/renders/:id/video")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  shutdown: %v", err)
	}
}
