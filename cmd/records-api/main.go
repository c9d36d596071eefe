// Command records-api serves the records HTTP API.
//
// RUNNING THE SERVER:
//
//	go run ./cmd/records-api serve --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/records-api serve
//
// With no config at all the server starts on defaults (memory storage,
// localhost:8082), overridable through environment variables.
package main

import (
	"os"
)

func main() {
	// Cobra has already printed the error; a non-zero exit code signals
	// failure to the OS / CI system / orchestrator.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
