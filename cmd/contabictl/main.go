package main

import (
	"os"

	"github.com/mrwhyte0520/contabi/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
