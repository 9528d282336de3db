package main

import (
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/CSRExport/internal/command"
	"github.com/JonMunkholm/CSRExport/internal/config"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	command.Execute(config.Load)
}
