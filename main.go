package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chisato/cmd"
	"chisato/config"
	"chisato/database"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	fs := flag.NewFlagSet("chisato", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config overlay")
	logLevel := fs.String("log-level", "", "log level (overrides LOG_LEVEL)")
	steps := fs.Int("steps", 1, "number of migrations to roll back with 'migrate down'")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: chisato [run|migrate up|down|status] [flags]\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if *configPath != "" {
		config.SetConfigFile(*configPath)
	}

	args := fs.Args()
	if len(args) > 0 && args[0] == "migrate" {
		cmd.ConfigureLogging(*logLevel, os.Getenv("LOG_FORMAT"))
		if err := handleMigrationCommand(args[1:], *steps); err != nil {
			log.Fatalf("Migration error: %v", err)
		}
		return
	}
	if len(args) > 0 && args[0] != "run" {
		fs.Usage()
		os.Exit(2)
	}

	// Normal bot operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Run the application
	if err := cmd.Run(ctx, *logLevel); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func handleMigrationCommand(args []string, steps int) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: chisato migrate [up|down|status] [--steps N]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
