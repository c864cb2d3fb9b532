// Command sprintbot runs the sprint tracker Telegram bot.
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/sprintbot/core/cmd"
	"github.com/m3rciful/sprintbot/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	if err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "SPRINTBOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatal(err)
	}
}
