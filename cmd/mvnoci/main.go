// Package main is the entry point for the mvnoci proxy.
package main

import (
	"os"

	"github.com/mvnoci/mvnoci/cmd/mvnoci/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
