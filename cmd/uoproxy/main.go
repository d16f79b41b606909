// Command uoproxy runs the intercepting proxy: load uoproxy.toml,
// dial the upstream UO server, and accept downstream clients until
// interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"uoproxy/internal/app"
	"uoproxy/internal/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "uoproxy.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("uoproxy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, app.Deps{}); err != nil {
		log.Fatalf("uoproxy: %v", err)
	}
}
