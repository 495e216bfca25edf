// Command taskdevserver serves an in-memory /tasks backend for local runs.
package main

import (
	"errors"
	"flag"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"tasklist/internal/config"
	"tasklist/internal/taskapi/taskapitest"
)

func main() {
	addr := flag.String("addr", envOr("TASKS_DEV_ADDR", ":8081"), "listen address")
	flag.Parse()

	if err := config.ConfigureLogging(envOr("LOG_LEVEL", "info")); err != nil {
		log.Fatalf("config: %v", err)
	}

	log.WithField("addr", *addr).Info("dev task service listening")
	if err := taskapitest.NewService().Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
