package main

import (
	"context"
	"fmt"
	"os"
)

const defaultEnvFile = ".env"

func main() {
	if err := loadEnv(defaultEnvFile); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		// stdout carries the response in CGI mode, errors go to stderr only
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}
