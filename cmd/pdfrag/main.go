package main

import (
	"github.com/joho/godotenv"

	"pdfrag/internal/cli"
)

func main() {
	// Optional .env with embedding provider credentials.
	_ = godotenv.Load()

	cli.Execute()
}
