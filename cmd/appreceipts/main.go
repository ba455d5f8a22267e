// Command appreceipts fetches iTunes Store receipt emails, extracts the
// purchases and prints spend statistics.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/pkarlsson/appreceipts/pkg/logging"
)

func main() {
	// Credentials may live in a .env file next to the binary.
	_ = godotenv.Load()

	logging.Setup(logging.DefaultConfig())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
