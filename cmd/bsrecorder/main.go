// Package main is the entry point for the bsrecorder application.
package main

import (
	"os"

	"github.com/jmylchreest/tvarr/cmd/bsrecorder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
