package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"siteledger/cmd"
	"siteledger/internal/config"
	"siteledger/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Required values are validated by the commands that need them, after
	// command-line overrides are applied.
	cfg, cfgErr := config.FromEnv()

	logConfig := logger.DefaultConfig()
	if cfgErr == nil {
		logConfig = cfg.GetLoggerConfig()
	}
	closer, err := logger.Setup(logConfig)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLog := logger.WithComponent("main")
	if cfgErr != nil {
		appLog.Warn().Err(cfgErr).Msg("Could not load configuration")
	}
	appLog.Debug().Msg("Starting siteledger")

	execErr := cmd.Execute(cfg, cfgErr)

	appLog.Debug().Msg("siteledger shutdown")
	_ = closer.Close()

	if execErr != nil {
		os.Exit(1)
	}
}
