package main

import (
	"os"

	"github.com/quantlab/stocksignal/cmd/stocksignal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
