package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], ".env")
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	if cfg.ShowRecords {
		recs, err := repo.ListRecords(ctx, cfg.RecordsLimit)
		if err != nil {
			log.Fatal(err)
		}
		printRecords(os.Stdout, recs)
		return
	}

	if err := newSession(cfg, repo, os.Stdin, os.Stdout).run(ctx); err != nil {
		log.Fatal(err)
	}
}
