package main

import (
	"os"

	appLog "arcsched/internal/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		appLog.Error("arcsched failed", err)
		os.Exit(1)
	}
}
