package main

import (
	"os"

	"github.com/capvalis/breakout/cmd/breakout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
