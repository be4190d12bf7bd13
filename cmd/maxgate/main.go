// Package main is the entry point for the maxgate binary.
// It delegates immediately to the CLI command tree.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/cli"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/logging"
)

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logging.Logger().Error("fatal error", "err", err)
		os.Exit(1)
	}
}
