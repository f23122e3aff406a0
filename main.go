package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/ssogate/internal/config"
	"github.com/go-authgate/ssogate/internal/router"

	"github.com/appleboy/graceful"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router.New(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	m := graceful.NewManager()
	m.AddRunningJob(func(_ context.Context) error {
		log.Printf("listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	<-m.Done()
}
