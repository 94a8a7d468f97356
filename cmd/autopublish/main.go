// Command autopublish generates and publishes one batch of AI surveys.
// It is meant to be run by a scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"pulsevote/internal/config"
	"pulsevote/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	region := flag.String("region", "", "Region passed to the generator (defaults to AUTO_PUBLISH_REGION)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *region == "" {
		*region = cfg.AutoPublishRegion
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	res, err := srv.Publisher().AutoPublish(ctx, *region)
	if err != nil {
		return fmt.Errorf("auto-publish: %w", err)
	}
	log.Printf("auto-publish: %d surveys published", res.PublishedCount)
	return nil
}
