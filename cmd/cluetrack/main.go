package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cluetrack/internal/cli"
)

func main() {
	// 1. Parse command-line flags
	logLevel := flag.String("loglevel", "info", "Set logging level (debug, info, warn, error)")
	loadPath := flag.String("load", "", "Resume a session from a snapshot file")
	flag.Parse()

	// 2. Set up top-level dependencies (Logger)
	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, ForceColors: true})

	// 3. Pick up advisor credentials from a local .env, if present
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	// 4. Create the CLI, injecting the logger, and run the application
	ui := cli.NewCLI(log)
	if err := ui.Run(*loadPath); err != nil {
		log.Errorf("Application exited with error: %v", err)
		os.Exit(1)
	}
}
