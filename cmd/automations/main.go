package main

import (
	"os"

	"github.com/planora/automations/cmd/automations/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
