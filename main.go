package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/avelinab/notodon/internal/cli"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
