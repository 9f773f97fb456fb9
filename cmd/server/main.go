package main

import (
	"pulse-notify/internal/app"
	"pulse-notify/pkg/config"
	"pulse-notify/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	app.Run(cfg, log)
}
