package main

import (
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"img2pdf/backend/internal/config"
	"img2pdf/backend/internal/server"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	srv := server.New(cfg, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
