// main.go

package main

import (
	"fmt"
	"os"

	"github.com/CypressSecurity/reenroll/cmd"
	"github.com/CypressSecurity/reenroll/pkg/logger"
	"github.com/CypressSecurity/reenroll/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback(os.Getenv("LOG_FILE_NAME"))
	if logger.L() == nil {
		panic("logger.L() returned nil — logger not initialized")
	}

	if err := telemetry.Init("reenroll"); err != nil {
		fmt.Fprintln(os.Stderr, "telemetry disabled:", err)
	}

	cmd.Execute()
}
