package main

import (
	"os"

	"github.com/rhinci/Morskoy-boy/cmd/seabattle/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
