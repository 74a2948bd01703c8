package main

import (
	"os"

	"github.com/reubingeorge/undetected-chromedriver-go/internal/observability"
)

func main() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
