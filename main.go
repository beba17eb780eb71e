package main

import (
	"os"

	"github.com/iota-community/optimus-bot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
