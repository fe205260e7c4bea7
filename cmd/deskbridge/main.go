package main

import (
	"os"

	"deskbridge/cmd/deskbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
