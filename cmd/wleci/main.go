package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wleci/internal/config"
	"wleci/internal/http/handlers"
	applog "wleci/internal/log"
	"wleci/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := applog.TeeToFile(cfg.LogFile)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	deps, err := handlers.NewDeps(db, cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin, err := deps.UserService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		log.Printf("[boot] admin account %s ready (id=%d)", admin.Email, admin.ID)
	}
	if cfg.SeedDemo {
		if err := repos.SeedDemo(ctx, db); err != nil {
			log.Printf("[warn] seed demo data: %v", err)
		}
	}

	app := handlers.NewApp(cfg, deps)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[boot] shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[warn] shutdown: %v", err)
		}
	}()

	log.Printf("[boot] wleci %s listening on :%s (%s)", cfg.Version, cfg.Port, cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
