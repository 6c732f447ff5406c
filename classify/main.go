package main

import (
	"log/slog"
	"os"

	"github.com/DeafMist/competitor-radar/internal/logger"
)

func main() {
	// stdout carries the JSON views.
	log := logger.NewWithWriter(os.Stderr, "classify", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err := newRootCmd(log).Execute(); err != nil {
		log.Error("classify failed", slog.Any("err", err))
		os.Exit(1)
	}
}
